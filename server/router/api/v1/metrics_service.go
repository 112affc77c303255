package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	memerrors "github.com/hrygo/mnemos/internal/errors"
	"github.com/hrygo/mnemos/store"
)

// ListMetricBuckets handles GET /api/v1/metrics/buckets. Defaults to the
// last 24 hours.
func (s *APIV1Service) ListMetricBuckets(c echo.Context) error {
	find := &store.FindMetricBucket{}
	if metric := c.QueryParam("metric"); metric != "" {
		find.Metric = &metric
	}

	hours := 24
	if raw := c.QueryParam("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return writeError(c, memerrors.InvalidArgument("hours must be a positive integer"))
		}
		hours = parsed
	}
	afterTs := time.Now().Add(-time.Duration(hours) * time.Hour).Unix()
	find.AfterTs = &afterTs

	buckets, err := s.Store.ListMetricBuckets(c.Request().Context(), find)
	if err != nil {
		return writeError(c, memerrors.StoreUnavailable("failed to list metric buckets", err))
	}
	return c.JSON(http.StatusOK, buckets)
}
