package city

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-worldwise/app/observability/metrics"
	"github.com/FACorreiaa/go-worldwise/internal/api"
	"github.com/FACorreiaa/go-worldwise/internal/types"
)

type Handler struct {
	logger  *slog.Logger
	service Service
}

func NewCityHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// Routes mounts the city resource: GET/POST /, GET/DELETE /{id}.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.GetAllCities)
	r.Post("/", h.CreateCity)
	r.Get("/{id}", h.GetCity)
	r.Delete("/{id}", h.DeleteCity)
}

// GetAllCities handles GET /cities - returns all cities in insertion order
func (h *Handler) GetAllCities(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "GetAllCities")
	defer span.End()
	h.count(r, "GetAllCities")

	l := h.logger.With(slog.String("method", "GetAllCities"))

	cities, err := h.service.GetAllCities(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to retrieve cities", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve cities")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, cities)
	l.DebugContext(ctx, "Successfully returned cities", slog.Int("count", len(cities)))
	span.SetStatus(codes.Ok, "Cities returned successfully")
}

// GetCity handles GET /cities/{id}
func (h *Handler) GetCity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "GetCity")
	defer span.End()
	h.count(r, "GetCity")

	id, ok := h.cityID(w, r, span)
	if !ok {
		return
	}

	c, err := h.service.GetCity(ctx, id)
	if err != nil {
		h.fail(w, r, span, "GetCity", err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, c)
	span.SetStatus(codes.Ok, "City returned successfully")
}

// CreateCity handles POST /cities
func (h *Handler) CreateCity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "CreateCity")
	defer span.End()
	h.count(r, "CreateCity")

	var payload types.NewCity
	if err := api.DecodeJSONBody(w, r, &payload); err != nil {
		h.logger.WarnContext(ctx, "Invalid create city body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.CreateCity(ctx, payload)
	if err != nil {
		h.fail(w, r, span, "CreateCity", err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/cities/%s", created.ID))
	api.WriteJSONResponse(w, r, http.StatusCreated, created)
	span.SetAttributes(attribute.String("city.id", created.ID.String()))
	span.SetStatus(codes.Ok, "City created successfully")
}

// DeleteCity handles DELETE /cities/{id}
func (h *Handler) DeleteCity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "DeleteCity")
	defer span.End()
	h.count(r, "DeleteCity")

	id, ok := h.cityID(w, r, span)
	if !ok {
		return
	}

	if err := h.service.DeleteCity(ctx, id); err != nil {
		h.fail(w, r, span, "DeleteCity", err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
	span.SetStatus(codes.Ok, "City deleted successfully")
}

func (h *Handler) cityID(w http.ResponseWriter, r *http.Request, span trace.Span) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Invalid city id", slog.String("id", raw))
		span.SetStatus(codes.Error, "Invalid city id")
		api.ErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("invalid city id %q", raw))
		return uuid.Nil, false
	}
	span.SetAttributes(attribute.String("city.id", id.String()))
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, span trace.Span, method string, err error) {
	status := api.StatusFor(err)
	l := h.logger.With(slog.String("method", method))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if status == http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "City operation failed", slog.Any("error", err))
		api.ErrorResponse(w, r, status, "Internal Server Error")
		return
	}
	l.WarnContext(r.Context(), "City operation rejected", slog.Any("error", err), slog.Int("status", status))
	api.ErrorResponse(w, r, status, err.Error())
}

func (h *Handler) count(r *http.Request, op string) {
	metrics.Get().CityRequestsTotal.Add(r.Context(), 1, metric.WithAttributes(attribute.String("operation", op)))
}
