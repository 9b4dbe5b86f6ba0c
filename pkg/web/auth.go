package web

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/largo-sh/largo/pkg/config"
	"github.com/largo-sh/largo/pkg/jwk"
	"github.com/largo-sh/largo/pkg/lfs"
	"github.com/largo-sh/largo/pkg/transfer"
)

// authorizeAction verifies the bearer action token attached to an object
// storage request. Tokens are issued by the transfer adapters and scoped to
// a namespace; for requests addressing one object the token subject must
// match it. When oid is empty only the namespace scope is checked.
//
// Returns false after writing a response when the request is not authorized.
func authorizeAction(w http.ResponseWriter, r *http.Request, namespace, oid string) bool {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithPrefix("http.auth")

	bearer, err := bearerToken(r)
	if err != nil {
		askCredentials(w)
		renderJSON(w, http.StatusUnauthorized, lfs.ErrorResponse{
			Message:   "credentials needed",
			RequestID: requestID(ctx),
		})
		return false
	}

	cfg := config.FromContext(ctx)
	kp, ok := jwk.FromContext(ctx)
	if !ok {
		logger.Error("no signing key pair in context")
		renderJSON(w, http.StatusInternalServerError, lfs.ErrorResponse{
			Message:   "internal server error",
			RequestID: requestID(ctx),
		})
		return false
	}

	claims, err := transfer.VerifyActionToken(kp, cfg.HTTP.PublicURL, bearer, namespace)
	if err != nil {
		logger.Debug("invalid action token", "err", err)
		askCredentials(w)
		renderJSON(w, http.StatusUnauthorized, lfs.ErrorResponse{
			Message:   "credentials needed",
			RequestID: requestID(ctx),
		})
		return false
	}

	if oid != "" && claims.Subject != path.Join(namespace, oid) {
		logger.Debug("token subject mismatch", "subject", claims.Subject)
		renderJSON(w, http.StatusForbidden, lfs.ErrorResponse{
			Message:   "forbidden",
			RequestID: requestID(ctx),
		})
		return false
	}

	return true
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}

func askCredentials(w http.ResponseWriter) {
	w.Header().Set("LFS-Authenticate", `Bearer realm="Git LFS" charset="UTF-8"`)
}
