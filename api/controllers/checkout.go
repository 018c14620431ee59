package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/bazarcheh/bazarcheh-backend/api/middleware"
	"github.com/bazarcheh/bazarcheh-backend/api/responses"
	"github.com/bazarcheh/bazarcheh-backend/api/validators"
	cartsvc "github.com/bazarcheh/bazarcheh-backend/internal/cart"
	"github.com/bazarcheh/bazarcheh-backend/internal/orders"
	pkgerrors "github.com/bazarcheh/bazarcheh-backend/pkg/errors"
	"github.com/bazarcheh/bazarcheh-backend/pkg/logger"
	"github.com/bazarcheh/bazarcheh-backend/pkg/metrics"
	"github.com/bazarcheh/bazarcheh-backend/pkg/session"
)

type checkoutRequest struct {
	Customer checkoutCustomer `json:"customer" validate:"required"`
	Shipping checkoutShipping `json:"shipping" validate:"required"`
}

type checkoutCustomer struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"required,max=30"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type checkoutShipping struct {
	AddressLine1 string `json:"address_line1" validate:"required,max=250"`
	AddressLine2 string `json:"address_line2" validate:"max=250"`
	City         string `json:"city" validate:"max=100"`
	PostalCode   string `json:"postal_code" validate:"max=20"`
	Country      string `json:"country" validate:"max=100"`
}

// Checkout converts the caller's persisted cart into an order, then clears
// the cart. The order commit and the cart clear are separate steps; a failed
// clear leaves a stale cart but never a broken order.
func Checkout(ordersSvc orders.Service, carts cartsvc.Service, sessions *session.Store, m *metrics.CheckoutMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ordersSvc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		source, err := carts.SourceFor(r.Context(), cartsvc.Actor{UserID: &userID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cartLines, err := source.Lines(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]orders.OrderLine, 0, len(cartLines))
		for _, line := range cartLines {
			lines = append(lines, orders.OrderLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			})
		}

		order, err := ordersSvc.CreateOrder(r.Context(), userID, orders.CreateOrderInput{
			Lines: lines,
			Customer: orders.CustomerInfo{
				FullName: body.Customer.FullName,
				Phone:    body.Customer.Phone,
				Email:    body.Customer.Email,
			},
			Shipping: orders.ShippingInfo{
				AddressLine1: body.Shipping.AddressLine1,
				AddressLine2: body.Shipping.AddressLine2,
				City:         body.Shipping.City,
				PostalCode:   body.Shipping.PostalCode,
				Country:      body.Shipping.Country,
			},
		})
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
				m.IncStockConflict()
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		m.IncCreated()

		if clearErr := carts.ClearForUser(r.Context(), userID); clearErr != nil && logg != nil {
			logg.Error(r.Context(), "clear cart after checkout failed", clearErr)
		}
		if sessions != nil {
			if sid := sessions.SessionID(r); sid != "" {
				if clearErr := sessions.Clear(r.Context(), sid); clearErr != nil && logg != nil {
					logg.Error(r.Context(), "clear session cart after checkout failed", clearErr)
				}
			}
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
