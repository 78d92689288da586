package handler

import (
	"strconv"

	"github.com/dafibh/proflow/proflow-backend/internal/domain"
	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxListLimit = 500

// pathID parses a uuid path parameter; ok is false once the 400 has been written
func pathID(c echo.Context, name string) (id uuid.UUID, ok bool, err error) {
	id, parseErr := uuid.Parse(c.Param(name))
	if parseErr != nil {
		return uuid.Nil, false, NewValidationError(c, "Invalid "+name, []ValidationError{
			{Field: name, Message: "Must be a valid ID"},
		})
	}
	return id, true, nil
}

// queryID parses an optional uuid query parameter
func queryID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// listOptions reads ?sort=-field and ?limit=n
func listOptions(c echo.Context) (service.ListOptions, []ValidationError) {
	var opts service.ListOptions
	var errs []ValidationError

	if raw := c.QueryParam("sort"); raw != "" {
		sort, err := domain.ParseSort(raw)
		if err != nil {
			errs = append(errs, ValidationError{Field: "sort", Message: "Must be a field name, optionally prefixed with -"})
		} else {
			opts.Sort = sort
		}
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 || limit > maxListLimit {
			errs = append(errs, ValidationError{Field: "limit", Message: "Must be between 0 and 500"})
		} else {
			opts.Limit = limit
		}
	}
	return opts, errs
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
