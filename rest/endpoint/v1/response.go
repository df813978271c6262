package endpoint

import (
	"encoding/json"
	"errors"
	"net/http"

	e "github.com/crmkit/crm-data-apis/rest/errors"
	m "github.com/crmkit/crm-data-apis/rest/models"
)

// RespondJSONObjectWithCode writes the object and status header to the response. Important to note that if this is being
// used for an error case then an empty return will need to immediately follow the call to this function
func RespondJSONObjectWithCode(w http.ResponseWriter, code int, obj interface{}) {
	var jsonBytes []byte
	if obj != nil {
		var err error
		jsonBytes, err = json.Marshal(obj)
		if err != nil {
			RespondWithError(w, errors.New("unable to marshal response"), http.StatusInternalServerError)
			return
		}
	}
	setCommonHeaders(w)
	w.WriteHeader(code)
	if jsonBytes != nil {
		_, _ = w.Write(jsonBytes)
	}
}

func RespondWithError(w http.ResponseWriter, err error, code int) {
	RespondJSONObjectWithCode(w, code, m.ModelError{Description: err.Error(), InternalCode: e.CodeForStatus(code)})
}

// RespondWithDomainError picks the status code from the kind of error.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	RespondJSONObjectWithCode(w, e.StatusCode(err), m.ModelError{Description: err.Error(), InternalCode: e.Code(err)})
}

func setCommonHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
}
