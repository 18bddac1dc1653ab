package handler

import (
	"errors"

	"github.com/deppfellow/covid-api/internal/errs"
	"github.com/deppfellow/covid-api/internal/lib/utils"
	"github.com/deppfellow/covid-api/internal/model"
	"github.com/deppfellow/covid-api/internal/server"
	"github.com/deppfellow/covid-api/internal/service"
	"github.com/deppfellow/covid-api/internal/validation"
	"github.com/labstack/echo/v4"
)

var codeNoPriorRecord = "NO_PRIOR_RECORD"

// EmptyRequest is the payload of routes without parameters.
type EmptyRequest struct{}

func (r *EmptyRequest) Validate() error {
	return nil
}

type ObservationIDRequest struct {
	ID string `param:"id" json:"-" validate:"required,uuid"`
}

func (r *ObservationIDRequest) Validate() error {
	return validation.Struct(r)
}

type CountryRequest struct {
	Country string `param:"country" json:"-" validate:"required"`
}

func (r *CountryRequest) Validate() error {
	return validation.Struct(r)
}

type ContinentRequest struct {
	Continent string `param:"continent" json:"-" validate:"required"`
}

func (r *ContinentRequest) Validate() error {
	return validation.Struct(r)
}

// AppendObservationRequest is an observation without year_week; a
// year_week in the body is ignored since the server derives it. Numbers
// are pointers so an omitted field fails "required" while 0 passes.
type AppendObservationRequest struct {
	Country         string   `json:"country" validate:"required"`
	CountryCode     *string  `json:"country_code" validate:"omitempty,min=1"`
	Continent       string   `json:"continent" validate:"required"`
	Population      *int64   `json:"population" validate:"required,gte=0"`
	Indicator       string   `json:"indicator" validate:"required"`
	WeeklyCount     *int64   `json:"weekly_count" validate:"required,gte=0"`
	Rate14Day       *float64 `json:"rate_14_day" validate:"omitempty,gte=0"`
	CumulativeCount *int64   `json:"cumulative_count" validate:"required,gte=0"`
	Source          string   `json:"source" validate:"required"`
}

func (r *AppendObservationRequest) Validate() error {
	return validation.Struct(r)
}

type UpdateWeeklyCountRequest struct {
	ID          string `param:"id" json:"-" validate:"required,uuid"`
	WeeklyCount *int64 `json:"weekly_count" validate:"required,gte=0"`
}

func (r *UpdateWeeklyCountRequest) Validate() error {
	return validation.Struct(r)
}

// CovidHandler serves the observation routes. All of them require a token.
type CovidHandler struct {
	Handler
	covid       *service.CovidService
	aggregation *service.AggregationService
}

func NewCovidHandler(s *server.Server, covid *service.CovidService, aggregation *service.AggregationService) *CovidHandler {
	return &CovidHandler{
		Handler:     NewHandler(s),
		covid:       covid,
		aggregation: aggregation,
	}
}

func (h *CovidHandler) All(c echo.Context, _ *EmptyRequest) ([]model.Observation, error) {
	return h.covid.All(c.Request().Context())
}

// ByID returns an empty list for an unknown id.
func (h *CovidHandler) ByID(c echo.Context, req *ObservationIDRequest) ([]model.Observation, error) {
	return h.covid.ByID(c.Request().Context(), req.ID)
}

func (h *CovidHandler) ByCountry(c echo.Context, req *CountryRequest) ([]model.Observation, error) {
	return h.covid.ByCountry(c.Request().Context(), utils.CapitalizeFirstLetter(req.Country))
}

func (h *CovidHandler) ByContinent(c echo.Context, req *ContinentRequest) ([]model.Observation, error) {
	return h.covid.ByContinent(c.Request().Context(), utils.CapitalizeFirstLetter(req.Continent))
}

func (h *CovidHandler) ContinentSummary(c echo.Context, _ *EmptyRequest) (model.ContinentSummary, error) {
	return h.aggregation.ContinentSummary(c.Request().Context())
}

func (h *CovidHandler) CountrySummary(c echo.Context, _ *EmptyRequest) ([]model.CountryTotal, error) {
	return h.aggregation.ReferenceCountrySummary(c.Request().Context())
}

func (h *CovidHandler) Append(c echo.Context, req *AppendObservationRequest) (*model.Observation, error) {
	o, err := h.covid.Append(c.Request().Context(), service.AppendInput{
		Country:         req.Country,
		CountryCode:     req.CountryCode,
		Continent:       req.Continent,
		Population:      *req.Population,
		Indicator:       req.Indicator,
		WeeklyCount:     *req.WeeklyCount,
		Rate14Day:       req.Rate14Day,
		CumulativeCount: *req.CumulativeCount,
		Source:          req.Source,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoPriorRecord) {
			return nil, errs.NewBadRequestError(
				"No prior record for this country and indicator, the next year_week cannot be derived",
				false, &codeNoPriorRecord, nil, nil)
		}
		return nil, err
	}
	return o, nil
}

// UpdateWeeklyCount reports zero matched rows for an unknown id.
func (h *CovidHandler) UpdateWeeklyCount(c echo.Context, req *UpdateWeeklyCountRequest) (model.UpdateResult, error) {
	return h.covid.UpdateWeeklyCount(c.Request().Context(), req.ID, *req.WeeklyCount)
}

func (h *CovidHandler) Delete(c echo.Context, req *ObservationIDRequest) (model.DeleteResult, error) {
	return h.covid.Delete(c.Request().Context(), req.ID)
}
