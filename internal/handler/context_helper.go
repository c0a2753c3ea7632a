package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pilotaja-api/internal/dto"
	"github.com/noah-isme/pilotaja-api/internal/middleware"
	"github.com/noah-isme/pilotaja-api/internal/models"
	appErrors "github.com/noah-isme/pilotaja-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}

// appointmentQueryFromRequest reads ?status=PENDING,CONFIRMED&from=...&to=... (RFC3339).
func appointmentQueryFromRequest(c *gin.Context) (dto.AppointmentQuery, error) {
	var query dto.AppointmentQuery
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, err := models.ParseAppointmentStatus(part)
			if err != nil {
				return query, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
			}
			query.Statuses = append(query.Statuses, status)
		}
	}

	var err error
	if query.From, err = timeParam(c, "from"); err != nil {
		return query, err
	}
	if query.To, err = timeParam(c, "to"); err != nil {
		return query, err
	}
	if query.From != nil && query.To != nil && !query.From.Before(*query.To) {
		return query, appErrors.Clone(appErrors.ErrValidation, "from must be before to")
	}
	return query, nil
}

func timeParam(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, name+" must be an RFC3339 timestamp")
	}
	parsed = parsed.UTC()
	return &parsed, nil
}
