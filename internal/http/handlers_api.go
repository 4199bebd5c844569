package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tallerhub/tallerhub/internal/domain/access"
	domainauth "github.com/tallerhub/tallerhub/internal/domain/auth"
	"github.com/tallerhub/tallerhub/internal/domain/kanban"
	"github.com/tallerhub/tallerhub/internal/domain/subscription"
	apperrors "github.com/tallerhub/tallerhub/internal/errors"
	"github.com/tallerhub/tallerhub/internal/service"
)

// KanbanAPI is the kanban service as seen by the JSON API.
type KanbanAPI interface {
	KanbanReader
	Move(ctx context.Context, access domainauth.Access, req kanban.MoveRequest) (*kanban.WorkOrder, error)
}

// TenantActivator confirms a shop's payment.
type TenantActivator interface {
	Activate(ctx context.Context, access domainauth.Access, req service.ActivateTenantRequest) error
}

// APIHandlers serves the JSON API. Handlers other than Session run behind
// ShellHandlers.GuardRoute, which stores the resolved shell state.
type APIHandlers struct {
	Shell   ShellResolver
	Kanban  KanbanAPI
	Tenants TenantActivator
	Logger  *slog.Logger
}

type sessionUser struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type sessionResponse struct {
	User         sessionUser             `json:"user"`
	Role         *domainauth.Role        `json:"role"`
	TenantID     *string                 `json:"tenant_id"`
	Subscription subscription.Resolution `json:"subscription"`
	ShowModal    bool                    `json:"show_modal"`
	Home         string                  `json:"home,omitempty"`
	Routes       []string                `json:"routes"`
}

// Session reports who the caller is and what the shell would show them.
// GET /api/session.
func (h *APIHandlers) Session(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentityFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errors.New("authentication required")})
		return
	}
	st := h.Shell.Resolve(r.Context(), identity)

	routes := []string{}
	for _, rt := range access.Visible(st.Access.Role) {
		routes = append(routes, rt.Path)
	}
	WriteJSON(w, http.StatusOK, sessionResponse{
		User: sessionUser{
			ID:        identity.UserID,
			Email:     identity.Email,
			FirstName: identity.FirstName,
			LastName:  identity.LastName,
		},
		Role:         st.Access.Role,
		TenantID:     st.Access.TenantID,
		Subscription: st.Subscription,
		ShowModal:    st.ShowModal,
		Home:         access.HomePath(st.Access.Role),
		Routes:       routes,
	})
}

// Board returns the caller's kanban board.
// GET /api/kanban.
func (h *APIHandlers) Board(w http.ResponseWriter, r *http.Request) {
	st, _ := GetShellStateFromContext(r.Context())
	board, err := h.Kanban.Board(r.Context(), st.Access)
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, board)
}

// moveOrderRequest is the PATCH body. From is the column the client last saw.
type moveOrderRequest struct {
	From     kanban.Status `json:"from"`
	To       kanban.Status `json:"to"`
	Position int           `json:"position"`
}

type conflictResponse struct {
	errorBody
	Current *kanban.WorkOrder `json:"current,omitempty"`
}

// MoveOrder moves a card. A stale From yields 409 with the stored order so
// the client can reconcile.
// PATCH /api/kanban/orders/{id}.
func (h *APIHandlers) MoveOrder(w http.ResponseWriter, r *http.Request) {
	var body moveOrderRequest
	if !DecodeJSON(w, r, &body) {
		return
	}
	st, _ := GetShellStateFromContext(r.Context())

	order, err := h.Kanban.Move(r.Context(), st.Access, kanban.MoveRequest{
		OrderID:  r.PathValue("id"),
		From:     body.From,
		To:       body.To,
		Position: body.Position,
	})
	if apperrors.IsConflict(err) {
		WriteJSON(w, http.StatusConflict, conflictResponse{
			errorBody: errorBody{Error: apperrors.GetMessage(err), Code: string(apperrors.ErrCodeConflict)},
			Current:   order,
		})
		return
	}
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, order)
}

// ActivateTenant marks a shop as paid.
// POST /api/tenants/{id}/activate.
func (h *APIHandlers) ActivateTenant(w http.ResponseWriter, r *http.Request) {
	st, _ := GetShellStateFromContext(r.Context())
	err := h.Tenants.Activate(r.Context(), st.Access, service.ActivateTenantRequest{TenantID: r.PathValue("id")})
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
