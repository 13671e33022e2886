package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"feedstock/internal/apierror"
	"feedstock/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func init() {
	// Register decimal.Decimal as a numeric type so that binding tags like
	// gte=0, gt=0 work without panicking ("Bad field type decimal.Decimal").
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	}
}

// bindAndValidate binds the JSON body and runs the binding tags. Returns
// false after writing the error response, so the caller just returns.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			fields := make(map[string]string, len(vErrs))
			for _, fe := range vErrs {
				fields[fe.Field()] = fe.Tag()
			}
			c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
			return false
		}
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	return true
}

// respondError maps the domain error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var (
		vErr *apierror.ValidationError
		nf   *apierror.NotFoundError
		dep  *apierror.DependencyError
		st   *apierror.StorageError
	)
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, vErr)
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, apierror.New(nf.Error()))
	case errors.As(err, &dep):
		c.JSON(http.StatusConflict, apierror.New(dep.Detail))
	case errors.Is(err, apierror.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.As(err, &st):
		log.Error().Str("request_id", c.GetString(middleware.RequestIDKey)).Err(err).Msg("storage error")
		c.JSON(http.StatusInternalServerError, apierror.New("storage failure"))
	default:
		log.Error().Str("request_id", c.GetString(middleware.RequestIDKey)).Err(err).Msg("unhandled service error")
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
	}
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// actorID extracts the authenticated user's id from the JWT claims.
func actorID(c *gin.Context) uuid.UUID {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return uuid.Nil
	}
	id, _ := uuid.Parse(claims.UserID)
	return id
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
