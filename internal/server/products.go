package server

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/safar/neokart/internal/models"
	"github.com/safar/neokart/internal/store"
	"github.com/shopspring/decimal"
)

const (
	relatedLimit   = 4
	maxUploadBytes = 32 << 20
)

func validateProduct(in models.ProductInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", errBadRequest)
	case strings.TrimSpace(in.Category) == "":
		return fmt.Errorf("%w: category is required", errBadRequest)
	case in.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", errBadRequest)
	case in.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", errBadRequest)
	}
	return nil
}

func (s *Server) handleAllProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := store.AllProducts(r.Context(), s.db)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, products)
	}
}

func (s *Server) handleProductsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := s.queryInt(w, r, "page", 1)
		if !ok {
			return
		}
		size, ok := s.queryInt(w, r, "size", store.DefaultPageSize)
		if !ok {
			return
		}

		result, err := store.ListProducts(r.Context(), s.db, page, size)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleGetProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}

		product, err := store.GetProduct(r.Context(), s.db, id)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, product)
	}
}

// handleProductPair serves /products/category/{category} and
// /products/{id}/ratings, which ServeMux cannot tell apart by pattern.
func (s *Server) handleProductPair() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		first, second := r.PathValue("first"), r.PathValue("second")

		switch {
		case first == "category":
			products, err := store.ProductsByCategory(r.Context(), s.db, second)
			if err != nil {
				s.respondErr(w, r, err)
				return
			}
			s.respondJSON(w, http.StatusOK, products)

		case second == "ratings":
			id, err := strconv.ParseInt(first, 10, 64)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, "Invalid product id")
				return
			}
			ratings, err := store.ProductRatings(r.Context(), s.db, id)
			if err != nil {
				s.respondErr(w, r, err)
				return
			}
			s.respondJSON(w, http.StatusOK, ratings)

		default:
			http.NotFound(w, r)
		}
	}
}

func (s *Server) handleFilterProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		f := store.ProductFilter{
			Category:    r.PathValue("category"),
			SubCategory: r.PathValue("sub"),
			SortBy:      q.Get("sortBy"),
		}
		if strings.EqualFold(f.SubCategory, "all") {
			f.SubCategory = ""
		}
		if !store.ValidProductSort(f.SortBy) {
			s.respondError(w, http.StatusBadRequest, "Invalid sortBy")
			return
		}

		var err error
		if f.MinPrice, err = optionalDecimal(q.Get("minPrice")); err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid minPrice")
			return
		}
		if f.MaxPrice, err = optionalDecimal(q.Get("maxPrice")); err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid maxPrice")
			return
		}

		products, err := store.FilterProducts(r.Context(), s.db, f)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, products)
	}
}

func optionalDecimal(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Server) handleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		if q == "" {
			s.respondJSON(w, http.StatusOK, []models.Product{})
			return
		}

		products, err := store.SearchProducts(r.Context(), s.db, q)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, products)
	}
}

func (s *Server) handleRelated() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}

		products, err := store.RelatedProducts(r.Context(), s.db, r.PathValue("category"), id, relatedLimit)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, products)
	}
}

func (s *Server) handleCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := store.Categories(r.Context(), s.db)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, categories)
	}
}

func (s *Server) handleCategoryTree() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tree, err := store.CategoryTree(r.Context(), s.db)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, tree)
	}
}

func (s *Server) handleRate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}

		var req models.RatingRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if req.Stars < 1 || req.Stars > 5 {
			s.respondError(w, http.StatusBadRequest, "Stars must be between 1 and 5")
			return
		}

		if err := store.RateProduct(r.Context(), s.db, id, currentUser(r.Context()).ID, req); err != nil {
			s.respondErr(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, models.MessageResponse{Success: true, Message: "Rating submitted"})
	}
}

func (s *Server) handleAddProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}

		in, err := productFromForm(r)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		urls, err := s.saveImages(r.MultipartForm.File["images"])
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		product, err := store.CreateProduct(r.Context(), s.db, in, urls)
		if err != nil {
			s.removeUploads(urls)
			s.respondErr(w, r, err)
			return
		}

		s.audit(r, fmt.Sprintf("Added product %d (%s)", product.ID, product.Name), "")
		s.respondJSON(w, http.StatusCreated, product)
	}
}

func productFromForm(r *http.Request) (models.ProductInput, error) {
	in := models.ProductInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: r.FormValue("description"),
		SKU:         strings.TrimSpace(r.FormValue("sku")),
		Category:    strings.TrimSpace(r.FormValue("category")),
		SubCategory: strings.TrimSpace(r.FormValue("subCategory")),
	}

	price, err := decimal.NewFromString(r.FormValue("price"))
	if err != nil {
		return in, fmt.Errorf("%w: invalid price", errBadRequest)
	}
	in.Price = price

	if raw := r.FormValue("stock"); raw != "" {
		if in.Stock, err = strconv.Atoi(raw); err != nil {
			return in, fmt.Errorf("%w: invalid stock", errBadRequest)
		}
	}

	return in, validateProduct(in)
}

func (s *Server) handleUpdateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}
		version, err := ifMatchVersion(r)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "Invalid If-Match version")
			return
		}

		var in models.ProductInput
		if !s.decodeJSON(w, r, &in) {
			return
		}
		if err := validateProduct(in); err != nil {
			s.respondErr(w, r, err)
			return
		}

		product, err := store.UpdateProduct(r.Context(), s.db, id, in, version)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.audit(r, fmt.Sprintf("Updated product %d", id), "")
		s.respondJSON(w, http.StatusOK, product)
	}
}

func (s *Server) handleDeleteProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.pathID(w, r, "id")
		if !ok {
			return
		}

		if err := store.DeleteProduct(r.Context(), s.db, id); err != nil {
			s.respondErr(w, r, err)
			return
		}

		s.audit(r, fmt.Sprintf("Deleted product %d", id), "")
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleBulkUpload creates one product per CSV row. Rows that fail are
// reported by line and do not stop the rest.
func (s *Server) handleBulkUpload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, _, err := r.FormFile("file")
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "A CSV file is required")
			return
		}
		defer file.Close()

		rows, err := parseBulkCSV(file)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}

		result := models.BulkUploadResult{}
		for _, row := range rows {
			if row.err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", row.line, row.err))
				continue
			}
			if _, err := store.CreateProduct(r.Context(), s.db, row.input, nil); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", row.line, err))
				continue
			}
			result.Created++
		}

		s.audit(r, fmt.Sprintf("Bulk uploaded %d products", result.Created), "")
		s.respondJSON(w, http.StatusOK, result)
	}
}

type bulkRow struct {
	line  int
	input models.ProductInput
	err   error
}

func parseBulkCSV(src io.Reader) ([]bulkRow, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: empty CSV", errBadRequest)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"name", "price", "category"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", errBadRequest, required)
		}
	}

	var rows []bulkRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}

		field := func(name string) string {
			if i, ok := index[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		row := bulkRow{line: line}
		row.input = models.ProductInput{
			Name:        field("name"),
			Description: field("description"),
			SKU:         field("sku"),
			Category:    field("category"),
			SubCategory: field("subcategory"),
		}
		if row.input.Price, err = decimal.NewFromString(field("price")); err != nil {
			row.err = errors.New("invalid price")
		} else if stock := field("stock"); stock != "" {
			if row.input.Stock, err = strconv.Atoi(stock); err != nil {
				row.err = errors.New("invalid stock")
			}
		}
		if row.err == nil {
			row.err = validateProduct(row.input)
		}
		rows = append(rows, row)
	}

	return rows, nil
}
