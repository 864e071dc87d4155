package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/phrazzld/usergate/internal/api/shared"
	"github.com/phrazzld/usergate/internal/platform/logger"
	"github.com/phrazzld/usergate/internal/service"
	"github.com/phrazzld/usergate/internal/store"
)

// UserHandler serves the /api/users resource.
type UserHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users service.UserService, log *slog.Logger) *UserHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UserHandler{users: users, logger: log.With(slog.String("component", "user_handler"))}
}

// List handles GET /api/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) error {
	q, fields := parseListQuery(r)
	if len(fields) > 0 {
		shared.RespondWithValidationErrors(w, r, fields)
		return nil
	}
	if !validateRequest(w, r, &q) {
		return nil
	}

	opts := store.ListOptions{
		Page:     q.Page,
		PageSize: q.PageSize,
		SortBy:   q.SortBy,
		SortDesc: q.SortDir == "desc",
		Search:   q.Search,
	}.Normalize()

	users, total, err := h.users.ListUsers(r.Context(), opts)
	if err != nil {
		return err
	}

	items := make([]UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, newUserResponse(u))
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("listed users",
		slog.Int("page", opts.Page),
		slog.Int("count", len(items)),
		slog.Int("total", total))

	shared.RespondWithJSON(w, r, http.StatusOK, UserListResponse{
		Items:      items,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalCount: total,
		TotalPages: opts.TotalPages(total),
	})
	return nil
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) error {
	id, err := currentUserID(r)
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		return err
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newUserResponse(user))
	return nil
}

// Get handles GET /api/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) error {
	id, err := pathUUID(r, "id")
	if err != nil {
		return err
	}
	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		return err
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newUserResponse(user))
	return nil
}

// Update handles PUT /api/users/{id}. Only the account owner may update it.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) error {
	actorID, err := currentUserID(r)
	if err != nil {
		return err
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		return err
	}

	var req UpdateUserRequest
	if !decodeRequest(w, r, &req) {
		return nil
	}

	user, err := h.users.UpdateUser(r.Context(), actorID, id, service.UpdateInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	shared.RespondWithJSON(w, r, http.StatusOK, newUserResponse(user))
	return nil
}

// Delete handles DELETE /api/users/{id}. Only the account owner may delete it.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	actorID, err := currentUserID(r)
	if err != nil {
		return err
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		return err
	}
	if err := h.users.DeleteUser(r.Context(), actorID, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// parseListQuery reads the list parameters. Non-integer page values are
// reported as field errors.
func parseListQuery(r *http.Request) (ListUsersQuery, []shared.FieldError) {
	values := r.URL.Query()
	q := ListUsersQuery{
		SortBy:  strings.TrimSpace(values.Get("sortBy")),
		SortDir: strings.ToLower(strings.TrimSpace(values.Get("sortDir"))),
		Search:  values.Get("search"),
	}

	var fields []shared.FieldError
	for _, p := range []struct {
		name string
		dst  *int
	}{{"page", &q.Page}, {"pageSize", &q.PageSize}} {
		raw := strings.TrimSpace(values.Get(p.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, shared.FieldError{Field: p.name, Message: "must be an integer"})
			continue
		}
		*p.dst = n
	}
	return q, fields
}
