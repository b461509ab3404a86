package grouping

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

func invariantError(msg string) error {
	return httperror.NewHTTPErrorf(http.StatusInternalServerError, "order group assembly: %s", msg)
}
