package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dvesely/syncroom/internal/auth"
)

const (
	ctxSubject = "subject"
	ctxScheme  = "auth_scheme"
)

// Authorization gates every request on the API version and resolves
// the caller's subject identity and scheme into the request context.
func Authorization(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.CheckVersion(c.Param("version")); err != nil {
			abort(c, err)
			return
		}
		subject, scheme, err := svc.Authenticate(c.GetHeader("Authorization"))
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(ctxSubject, subject)
		c.Set(ctxScheme, scheme)
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	var ae *auth.Error
	if errors.As(err, &ae) {
		c.String(ae.Status, ae.Body)
	} else {
		c.Status(http.StatusInternalServerError)
	}
	c.Abort()
}

func subjectOf(c *gin.Context) string { return c.GetString(ctxSubject) }

func schemeOf(c *gin.Context) auth.Scheme {
	return c.MustGet(ctxScheme).(auth.Scheme)
}

// requireBasic enforces the basic-only endpoint partition.
func requireBasic(c *gin.Context) bool {
	if s := schemeOf(c); s != auth.SchemeBasic && s != auth.SchemeAny {
		abort(c, auth.ErrNonBasic)
		return false
	}
	return true
}

// requireBearer enforces the bearer-only endpoint partition.
func requireBearer(c *gin.Context) bool {
	if s := schemeOf(c); s != auth.SchemeBearer && s != auth.SchemeAny {
		abort(c, auth.ErrNonBearer)
		return false
	}
	return true
}
