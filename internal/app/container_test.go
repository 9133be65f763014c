package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/auth"
	bookingHttp "github.com/SafalBhandari12/sojournBackend-sub001/internal/booking/http"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/config"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/payment"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/reservation"
	resHttp "github.com/SafalBhandari12/sojournBackend-sub001/internal/reservation/http"
)

// These tests run the whole container against a real PostgreSQL database.
// They are skipped unless TEST_DB_DSN is set.

var (
	testPool      *pgxpool.Pool
	testContainer *Container
	testGateway   *payment.SandboxGateway
)

func TestMain(m *testing.M) {
	if err := godotenv.Load("../../.env"); err != nil {
		log.Printf("No .env file found or failed to load: %v", err)
	}

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		log.Printf("TEST_DB_DSN is not set, skipping integration tests")
		os.Exit(0)
	}

	ctx := context.Background()
	var err error
	testPool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}

	schema, err := os.ReadFile("../../migrations/0001_reservation_engine.sql")
	if err != nil {
		log.Fatalf("Unable to read schema: %v", err)
	}
	if _, err := testPool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("Unable to apply schema: %v", err)
	}

	gin.SetMode(gin.TestMode)
	testGateway = payment.NewSandboxGateway("test-payment-secret")
	testContainer = NewContainer(Config{
		Settings: &config.Config{
			AppEnv:               "test",
			JWTSecret:            "test-jwt-secret",
			JWTAccessTokenTTL:    30 * time.Minute,
			DBLockTimeout:        3 * time.Second,
			DBTxMaxAttempts:      3,
			DBTxRetryBackoff:     10 * time.Millisecond,
			Currency:             "INR",
			CommissionBPS:        1000,
			HoldDuration:         15 * time.Minute,
			RefundFullWindow:     48 * time.Hour,
			RefundPartialWindow:  24 * time.Hour,
			RefundPartialPercent: 50,
			RefundMaxAttempts:    5,
			SweepInterval:        time.Minute,
			SweepBatchSize:       100,
		},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		DBPool:  testPool,
		Gateway: testGateway,
	})

	exitCode := m.Run()

	testPool.Close()
	os.Exit(exitCode)
}

func clearTables(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		"TRUNCATE TABLE public.payments, public.reservations, public.bookings, public.rooms, public.hotels CASCADE")
	require.NoError(t, err)
}

// seedRoom creates a hotel owned by vendorID with one room for two guests at 4000.00 INR.
func seedRoom(t *testing.T, vendorID string) string {
	t.Helper()
	ctx := context.Background()
	hotelID, roomID := uuid.NewString(), uuid.NewString()

	_, err := testPool.Exec(ctx,
		`INSERT INTO public.hotels (id, vendor_id, name) VALUES ($1, $2, 'Lakeview')`, hotelID, vendorID)
	require.NoError(t, err)
	_, err = testPool.Exec(ctx,
		`INSERT INTO public.rooms (id, hotel_id, name, capacity, price_per_night, currency)
		 VALUES ($1, $2, 'Deluxe', 2, 400000, 'INR')`, roomID, hotelID)
	require.NoError(t, err)
	return roomID
}

func token(t *testing.T, userID string, role auth.Role) string {
	t.Helper()
	tok, err := testContainer.JWTManager.GenerateAccessToken(userID, role)
	require.NoError(t, err)
	return tok
}

func executeRequest(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req, _ := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	testContainer.Router.ServeHTTP(w, req)
	return w
}

func stay(roomID string, fromDays, nights int) resHttp.CreateBody {
	start := time.Now().UTC().AddDate(0, 0, fromDays)
	return resHttp.CreateBody{
		RoomID:    roomID,
		CheckIn:   start.Format("2006-01-02"),
		CheckOut:  start.AddDate(0, 0, nights).Format("2006-01-02"),
		PartySize: 2,
		Guest:     resHttp.GuestBody{Name: "Asha Rao"},
	}
}

func createDraft(t *testing.T, body resHttp.CreateBody, tok string) resHttp.ReservationResponse {
	t.Helper()
	w := executeRequest("POST", "/v1/reservations", body, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp resHttp.ReservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestReservationLifecycleOnPostgres(t *testing.T) {
	clearTables(t)
	vendorID, customerID := uuid.NewString(), uuid.NewString()
	roomID := seedRoom(t, vendorID)
	customer := token(t, customerID, auth.RoleCustomer)
	vendor := token(t, vendorID, auth.RoleVendor)

	draft := createDraft(t, stay(roomID, 30, 2), customer)
	assert.Equal(t, int64(800_000), draft.TotalAmount)
	assert.Equal(t, vendorID, draft.VendorID)

	var intent resHttp.PaymentIntentResponse
	t.Run("Initiate Payment", func(t *testing.T) {
		w := executeRequest("POST", "/v1/reservations/"+draft.ID+"/payment", nil, customer)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &intent))
	})

	t.Run("Confirm Payment", func(t *testing.T) {
		body := resHttp.ConfirmPaymentBody{
			TransactionRef: "txn-1",
			Signature:      testGateway.Sign(intent.IntentRef, "txn-1"),
		}
		w := executeRequest("POST", "/v1/reservations/"+draft.ID+"/payment/confirm", body, customer)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp resHttp.ReservationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "CONFIRMED", resp.Status)
		require.NotNil(t, resp.Payment)
		assert.Equal(t, "SUCCESS", resp.Payment.Status)
	})

	t.Run("Booking Envelope Mirrors Status", func(t *testing.T) {
		w := executeRequest("GET", "/v1/bookings/"+draft.BookingID, nil, vendor)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var b bookingHttp.BookingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
		assert.Equal(t, "CONFIRMED", b.Status)
		assert.Equal(t, "HOTEL", b.Vertical)
		assert.Equal(t, int64(80_000), b.CommissionAmount)
	})

	t.Run("Cancel With Full Refund", func(t *testing.T) {
		w := executeRequest("POST", "/v1/reservations/"+draft.ID+"/cancel", resHttp.CancelBody{Reason: "plans changed"}, customer)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp resHttp.ReservationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "CANCELLED", resp.Status)
		assert.Equal(t, int64(800_000), resp.Refund.Amount)
		assert.Equal(t, "SUCCEEDED", resp.Refund.Status)
	})
}

func TestConcurrentHoldsOnPostgres(t *testing.T) {
	clearTables(t)
	roomID := seedRoom(t, uuid.NewString())

	const contenders = 8
	type contender struct {
		id  string
		tok string
	}
	var cs []contender
	for i := 0; i < contenders; i++ {
		userID := uuid.NewString()
		tok := token(t, userID, auth.RoleCustomer)
		// Every stay overlaps night 11.
		d := createDraft(t, stay(roomID, 10+i%2, 2), tok)
		cs = append(cs, contender{id: d.ID, tok: tok})
	}

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		codes = make([]int, contenders)
	)
	for i, c := range cs {
		wg.Add(1)
		go func(i int, c contender) {
			defer wg.Done()
			<-start
			codes[i] = executeRequest("POST", "/v1/reservations/"+c.id+"/payment", nil, c.tok).Code
		}(i, c)
	}
	close(start)
	wg.Wait()

	wins := 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			wins++
		case http.StatusConflict:
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 1, wins)

	var holding int
	err := testPool.QueryRow(context.Background(),
		`SELECT count(*) FROM public.reservations WHERE room_id = $1 AND status IN ('PENDING', 'CONFIRMED')`,
		roomID).Scan(&holding)
	require.NoError(t, err)
	assert.Equal(t, 1, holding)
}

func TestExclusionConstraintBacksConflictCheck(t *testing.T) {
	clearTables(t)
	ctx := context.Background()
	roomID := seedRoom(t, uuid.NewString())
	customer := token(t, uuid.NewString(), auth.RoleCustomer)

	first := createDraft(t, stay(roomID, 20, 3), customer)
	require.Equal(t, http.StatusOK, executeRequest("POST", "/v1/reservations/"+first.ID+"/payment", nil, customer).Code)
	second := createDraft(t, stay(roomID, 21, 1), customer)

	// Bypass the coordinator and write the overlapping hold directly.
	repo := reservation.NewPgxRepository(testPool)
	r, err := repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	r.Status = reservation.StatusPending
	expires := time.Now().Add(time.Minute)
	r.HoldExpiresAt = &expires

	err = repo.Save(ctx, r)
	require.ErrorIs(t, err, reservation.ErrConflict)

	got, err := repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusDraft, got.Status)
}
