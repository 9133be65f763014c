package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/auth"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/cancellation"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/payment"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/request"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/response"
	"github.com/SafalBhandari12/sojournBackend-sub001/internal/reservation"
)

type Handler struct {
	service       reservation.Service
	cancellations cancellation.Service
}

func NewHandler(service reservation.Service, cancellations cancellation.Service) *Handler {
	return &Handler{
		service:       service,
		cancellations: cancellations,
	}
}

func actorOf(c *gin.Context) reservation.Actor {
	return reservation.Actor{UserID: auth.GetUserID(c), IsAdmin: auth.IsAdmin(c)}
}

// load fetches the reservation named in the path and hides it from callers
// who may not see it. It writes the error response itself.
func (h *Handler) load(c *gin.Context) (*reservation.Reservation, bool) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid reservation id", err)
		return nil, false
	}

	r, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	if !r.VisibleTo(actorOf(c)) {
		response.Error(c, reservation.ErrNotFound)
		return nil, false
	}
	return r, true
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	interval, err := reservation.ParseInterval(body.CheckIn, body.CheckOut)
	if err != nil {
		response.Error(c, err)
		return
	}

	r, err := h.service.CreateDraft(c.Request.Context(), reservation.CreateRequest{
		CustomerID: auth.GetUserID(c),
		RoomID:     body.RoomID,
		Interval:   interval,
		PartySize:  body.PartySize,
		Guest: reservation.GuestDetails{
			Name:            body.Guest.Name,
			Email:           body.Guest.Email,
			Phone:           body.Guest.Phone,
			SpecialRequests: body.Guest.SpecialRequests,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewReservationResponse(r))
}

// List shows customers their own reservations and vendors those of their
// hotels. Admins see everything.
func (h *Handler) List(c *gin.Context) {
	var req ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	req.Normalize()

	filter := reservation.Filter{
		RoomID:   req.RoomID,
		Status:   reservation.Status(req.Status),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	switch auth.GetRole(c) {
	case auth.RoleAdmin:
	case auth.RoleVendor:
		filter.VendorID = auth.GetUserID(c)
	default:
		filter.CustomerID = auth.GetUserID(c)
	}

	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]ReservationResponse, len(items))
	for i, r := range items {
		out[i] = NewReservationResponse(r)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(out, req.Page, req.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	r, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, NewReservationResponse(r))
}

func (h *Handler) InitiatePayment(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid reservation id", err)
		return
	}

	intent, err := h.service.InitiatePayment(c.Request.Context(), uri.ID, actorOf(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewPaymentIntentResponse(intent))
}

func (h *Handler) ConfirmPayment(c *gin.Context) {
	r, ok := h.load(c)
	if !ok {
		return
	}

	var body ConfirmPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	confirmed, err := h.service.ConfirmPayment(c.Request.Context(), r.ID, payment.Proof{
		TransactionRef: body.TransactionRef,
		Signature:      body.Signature,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(confirmed))
}

func (h *Handler) FailPayment(c *gin.Context) {
	r, ok := h.load(c)
	if !ok {
		return
	}

	var body FailPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	if body.Reason == "" {
		body.Reason = "payment failed"
	}

	released, err := h.service.ReleaseHold(c.Request.Context(), r.ID, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(released))
}

func (h *Handler) CancellationQuote(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid reservation id", err)
		return
	}

	q, err := h.cancellations.Quote(c.Request.Context(), uri.ID, actorOf(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewRefundQuoteResponse(q))
}

func (h *Handler) Cancel(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid reservation id", err)
		return
	}

	var body CancelBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	r, err := h.cancellations.Cancel(c.Request.Context(), uri.ID, actorOf(c), body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(r))
}

func (h *Handler) Complete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid reservation id", err)
		return
	}

	r, err := h.service.MarkCompleted(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(r))
}
