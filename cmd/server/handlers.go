package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/liamcoop/quoting/catalog"
	"github.com/liamcoop/quoting/insurance"
	"github.com/liamcoop/quoting/questionnaire"
	"github.com/liamcoop/quoting/quote"
	"github.com/liamcoop/quoting/rating"
)

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Error:  err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (s *Server) handleCreateQuotes(w http.ResponseWriter, r *http.Request) {
	var req insurance.QuoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := s.service.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, quote.ErrInvalidRequest) {
			respondError(w, http.StatusBadRequest, "invalid quote request", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to generate quotes", err)
		return
	}

	if result.Rejected() {
		respondJSON(w, http.StatusUnprocessableEntity, RejectionResponse{
			Error:     "application declined",
			Rejection: result.Rejection,
		})
		return
	}

	respondJSON(w, http.StatusOK, QuoteResponse{
		InsuranceType: result.InsuranceType,
		Quotes:        result.Quotes,
		RequestID:     result.RequestID,
		ValidUntil:    *result.ValidUntil,
	})
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var req insurance.QuoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rejection, err := s.service.Decide(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid underwriting answers", err)
		return
	}

	respondJSON(w, http.StatusOK, DecisionResponse{
		Rejected:  rejection != nil,
		Rejection: rejection,
	})
}

func (s *Server) handleGetQuestionnaire(w http.ResponseWriter, r *http.Request) {
	typ, ok := insuranceTypeParam(w, r)
	if !ok {
		return
	}

	schema, err := s.questions.Get(typ)
	if err != nil {
		respondError(w, http.StatusNotFound, "questionnaire not found", err)
		return
	}
	respondJSON(w, http.StatusOK, schema)
}

// Catalog handlers

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	typ, ok := insuranceTypeParam(w, r)
	if !ok {
		return
	}

	products, err := s.catalog.ListActiveProducts(r.Context(), typ)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list products", err)
		return
	}
	respondJSON(w, http.StatusOK, ProductsListResponse{Products: products})
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	typ, ok := insuranceTypeParam(w, r)
	if !ok {
		return
	}

	var req CreateProductRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	product := req.product(typ)
	if err := s.catalog.AddProduct(r.Context(), product); err != nil {
		respondError(w, catalogStatus(err), "failed to add product", err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

func (s *Server) handleListFactors(w http.ResponseWriter, r *http.Request) {
	typ, ok := insuranceTypeParam(w, r)
	if !ok {
		return
	}

	factors, err := s.catalog.ListActiveFactors(r.Context(), typ)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rating factors", err)
		return
	}
	respondJSON(w, http.StatusOK, FactorsListResponse{Factors: factors})
}

func (s *Server) handleCreateFactor(w http.ResponseWriter, r *http.Request) {
	typ, ok := insuranceTypeParam(w, r)
	if !ok {
		return
	}

	var req FactorRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	factor := req.factor(typ)
	if err := s.checkFactor(factor); err != nil {
		respondError(w, http.StatusBadRequest, "invalid rating factor", err)
		return
	}
	if err := s.catalog.AddFactor(r.Context(), factor); err != nil {
		respondError(w, catalogStatus(err), "failed to add rating factor", err)
		return
	}
	respondJSON(w, http.StatusCreated, factor)
}

func (s *Server) handleUpdateFactor(w http.ResponseWriter, r *http.Request) {
	typ, ok := insuranceTypeParam(w, r)
	if !ok {
		return
	}
	existing, ok := s.factorOfType(w, r, typ)
	if !ok {
		return
	}

	var req FactorRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	factor := req.factor(typ)
	factor.ID = existing.ID
	if err := s.checkFactor(factor); err != nil {
		respondError(w, http.StatusBadRequest, "invalid rating factor", err)
		return
	}
	if err := s.catalog.UpdateFactor(r.Context(), factor); err != nil {
		respondError(w, catalogStatus(err), "failed to update rating factor", err)
		return
	}
	respondJSON(w, http.StatusOK, factor)
}

func (s *Server) handleDeleteFactor(w http.ResponseWriter, r *http.Request) {
	typ, ok := insuranceTypeParam(w, r)
	if !ok {
		return
	}
	existing, ok := s.factorOfType(w, r, typ)
	if !ok {
		return
	}

	if err := s.catalog.DeleteFactor(r.Context(), existing.ID); err != nil {
		respondError(w, catalogStatus(err), "failed to delete rating factor", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// checkFactor validates the factor's shape and that its condition fits the
// questionnaire of its insurance type.
func (s *Server) checkFactor(f *rating.RatingFactor) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return s.questions.CheckFactor(*f)
}

// factorOfType loads the factor named in the path. Factors of another
// insurance type are reported as not found.
func (s *Server) factorOfType(w http.ResponseWriter, r *http.Request, typ insurance.InsuranceType) (*rating.RatingFactor, bool) {
	factor, err := s.catalog.GetFactor(r.Context(), chi.URLParam(r, "factorId"))
	if err == nil && factor.InsuranceType != typ {
		err = catalog.ErrNotFound
	}
	if err != nil {
		respondError(w, catalogStatus(err), "rating factor not found", err)
		return nil, false
	}
	return factor, true
}

func insuranceTypeParam(w http.ResponseWriter, r *http.Request) (insurance.InsuranceType, bool) {
	typ := insurance.InsuranceType(chi.URLParam(r, "insuranceType"))
	if !typ.Valid() {
		respondError(w, http.StatusNotFound, "unknown insurance type", nil)
		return "", false
	}
	return typ, true
}

func catalogStatus(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, rating.ErrInvalidProduct),
		errors.Is(err, rating.ErrInvalidFactor),
		errors.Is(err, rating.ErrInvalidCondition),
		errors.Is(err, questionnaire.ErrUnknownQuestion),
		errors.Is(err, questionnaire.ErrIncompatibleOperand),
		errors.Is(err, questionnaire.ErrNoSchema):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
