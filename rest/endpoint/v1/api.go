package endpoint

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/crmkit/crm-data-apis/config"
	e "github.com/crmkit/crm-data-apis/rest/errors"
	m "github.com/crmkit/crm-data-apis/rest/models"
	t "github.com/crmkit/crm-data-apis/rest/translator"
	"github.com/crmkit/crm-data-apis/store"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxImportSize   = 32 << 20
)

var (
	inputValidator *validator.Validate
	trans          ut.Translator
)

func init() {
	inputValidator = validator.New()

	uni := ut.New(en.New(), en.New())
	trans, _ = uni.GetTranslator("en")

	_ = enTranslations.RegisterDefaultTranslations(inputValidator, trans)

	_ = inputValidator.RegisterTranslation("required", trans, func(ut ut.Translator) error {
		return ut.Add("required", "{0} is a required field", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		translator, _ := ut.T("required", fe.Field())
		return translator
	})

	_ = inputValidator.RegisterTranslation("oneof", trans, func(ut ut.Translator) error {
		return ut.Add("oneof", "{0} must be one of [{1}]", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		translator, _ := ut.T("oneof", fe.Field(), fe.Param())
		return translator
	})
}

func (s *routeList) GetEntities(w http.ResponseWriter, r *http.Request) {
	entities := s.catalog.Entities()
	result := make([]m.Entity, 0, len(entities))
	for _, entity := range entities {
		result = append(result, t.ToEntity(entity))
	}

	RespondJSONObjectWithCode(w, http.StatusOK, result)
}

func (s *routeList) GetEntity(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.entity(w, r)
	if !ok {
		return
	}

	RespondJSONObjectWithCode(w, http.StatusOK, t.ToEntity(entity))
}

func (s *routeList) GetRecords(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.entity(w, r)
	if !ok {
		return
	}

	query, err := s.translator(entity).ToQueryFromParams(r.URL.Query())
	if err != nil {
		RespondWithDomainError(w, err)
		return
	}

	s.list(w, r, entity, query)
}

func (s *routeList) QueryRecords(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.entity(w, r)
	if !ok {
		return
	}

	query, ok := s.parseQuery(w, r, entity)
	if !ok {
		return
	}

	s.list(w, r, entity, query)
}

func (s *routeList) list(w http.ResponseWriter, r *http.Request, entity *store.Entity, query store.Query) {
	result, err := entity.Repository.List(r.Context(), query)
	if err != nil {
		msg := "unable to list records"
		s.logger.Error(msg, "entity", entity.Name(), "error", err)
		RespondWithError(w, fmt.Errorf("%s: %s", msg, err), e.StatusCode(err))
		return
	}

	RespondJSONObjectWithCode(w, http.StatusOK, t.ToRows(result))
}

// ExportRecords serves the free-text listing as an xlsx workbook.
func (s *routeList) ExportRecords(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.entity(w, r)
	if !ok {
		return
	}

	query, err := s.translator(entity).ToQueryFromParams(r.URL.Query())
	if err != nil {
		RespondWithDomainError(w, err)
		return
	}

	s.export(w, r, entity, query)
}

// ExportQuery serves the records matching the query body as an xlsx workbook.
func (s *routeList) ExportQuery(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.entity(w, r)
	if !ok {
		return
	}

	query, ok := s.parseQuery(w, r, entity)
	if !ok {
		return
	}

	s.export(w, r, entity, query)
}

func (s *routeList) export(w http.ResponseWriter, r *http.Request, entity *store.Entity, query store.Query) {
	result, err := entity.Repository.List(r.Context(), query)
	if err != nil {
		msg := "unable to list records"
		s.logger.Error(msg, "entity", entity.Name(), "error", err)
		RespondWithError(w, fmt.Errorf("%s: %s", msg, err), e.StatusCode(err))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, entity.Name()))
	if err := store.WriteWorkbook(w, entity.Registry, result.Values); err != nil {
		s.logger.Error("unable to write workbook", "entity", entity.Name(), "error", err)
	}
}

// ImportRecords loads the records of an xlsx workbook. Records whose id
// already exists are left untouched.
func (s *routeList) ImportRecords(w http.ResponseWriter, r *http.Request) {
	if !s.supports(w, config.RecordUpdate) {
		return
	}
	entity, ok := s.entity(w, r)
	if !ok {
		return
	}

	loader, ok := entity.Repository.(store.Loader)
	if !ok {
		RespondWithError(w, e.NewConflictError(fmt.Sprintf("entity %s does not support imports", entity.Name())), http.StatusConflict)
		return
	}

	records, err := store.ReadWorkbook(io.LimitReader(r.Body, maxImportSize), entity.Registry)
	if err != nil {
		RespondWithError(w, fmt.Errorf("unable to read workbook: %s", err), http.StatusBadRequest)
		return
	}

	if err := loader.Load(r.Context(), records); err != nil {
		msg := "unable to load records"
		s.logger.Error(msg, "entity", entity.Name(), "error", err)
		RespondWithError(w, fmt.Errorf("%s: %s", msg, err), e.StatusCode(err))
		return
	}

	RespondJSONObjectWithCode(w, http.StatusCreated, m.Rows{Rows: []map[string]interface{}{}, Count: len(records)})
}

func (s *routeList) GetRecord(w http.ResponseWriter, r *http.Request) {
	entity, ok := s.entity(w, r)
	if !ok {
		return
	}

	id := s.params(r, "id")
	record, err := entity.Repository.Get(r.Context(), id)
	if err != nil {
		RespondWithDomainError(w, err)
		return
	}

	RespondJSONObjectWithCode(w, http.StatusOK, m.Rows{Rows: []map[string]interface{}{record}, Count: 1})
}

func (s *routeList) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	if !s.supports(w, config.RecordUpdate) {
		return
	}
	entity, ok := s.entity(w, r)
	if !ok {
		return
	}

	var rowsUpdate m.RowsUpdate
	if err := parseAndValidatePayload(&rowsUpdate, r); err != nil {
		RespondWithError(w, fmt.Errorf("unable to parse payload: %s", err), http.StatusBadRequest)
		return
	}

	patch, err := s.translator(entity).ToPatch(rowsUpdate)
	if err != nil {
		RespondWithDomainError(w, err)
		return
	}

	id := s.params(r, "id")
	record, err := entity.Repository.Update(r.Context(), id, patch)
	if err != nil {
		if e.StatusCode(err) == http.StatusInternalServerError {
			s.logger.Error("unable to update record", "entity", entity.Name(), "id", id, "error", err)
		}
		RespondWithDomainError(w, err)
		return
	}

	RespondJSONObjectWithCode(w, http.StatusOK, m.Rows{Rows: []map[string]interface{}{record}, Count: 1})
}

func (s *routeList) entity(w http.ResponseWriter, r *http.Request) (*store.Entity, bool) {
	entity, err := s.catalog.Entity(s.params(r, "entity"))
	if err != nil {
		RespondWithDomainError(w, err)
		return nil, false
	}
	return entity, true
}

func (s *routeList) translator(entity *store.Entity) t.APITranslator {
	return t.APITranslator{
		EntityName: entity.Name(),
		Registry:   entity.Registry,
	}
}

func (s *routeList) parseQuery(w http.ResponseWriter, r *http.Request, entity *store.Entity) (store.Query, bool) {
	var queryModel m.Query
	if err := parseAndValidatePayload(&queryModel, r); err != nil {
		RespondWithError(w, fmt.Errorf("unable to parse payload: %s", err), http.StatusBadRequest)
		return store.Query{}, false
	}

	query, err := s.translator(entity).ToQuery(queryModel)
	if err != nil {
		RespondWithDomainError(w, err)
		return store.Query{}, false
	}
	return query, true
}

// supports responds with a conflict when the operation is disabled.
func (s *routeList) supports(w http.ResponseWriter, op config.Operations) bool {
	if s.config.SupportedOperations().IsSupported(op) {
		return true
	}
	RespondWithError(w, e.NewConflictError(fmt.Sprintf("operation %s is not supported", op)), http.StatusConflict)
	return false
}

func parseAndValidatePayload(obj interface{}, r *http.Request) error {
	// An empty body decodes as an empty payload and is left to validation.
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(obj); err != nil && err != io.EOF {
			return err
		}
	}

	if err := inputValidator.Struct(obj); err != nil {
		return e.TranslateValidatorError(err, trans)
	}

	return nil
}
