package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"shopapi/internal/apperrors"
	"shopapi/internal/middleware"
	"shopapi/internal/models"
	"shopapi/internal/repositories"
	"shopapi/internal/services"
	"shopapi/internal/storage"
	"shopapi/internal/validation"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	productService *services.ProductService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// RegisterRoutes registers the product routes. Reads are public but still
// resolve an identity when a valid token is sent; writes are restricted to
// admins.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, requireAuth, optionalAuth fiber.Handler) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	products := router.Group("/products")
	products.Get("/", optionalAuth, h.HandleList)
	products.Get("/search", optionalAuth, h.HandleSearch)
	products.Get("/:id", optionalAuth, h.HandleGetByID)
	products.Post("/", requireAuth, adminOnly, h.HandleCreate)
	products.Put("/:id", requireAuth, adminOnly, h.HandleUpdate)
	products.Delete("/:id", requireAuth, adminOnly, h.HandleDelete)
}

// HandleList returns one filtered page of products. A non-empty search
// parameter dispatches to the search flow instead.
func (h *ProductHandler) HandleList(c *fiber.Ctx) error {
	page, limit, err := validation.Pagination(c.Query("page"), c.Query("limit"))
	if err != nil {
		return err
	}

	if search := c.Query("search"); search != "" {
		term, err := validation.SearchTerm(search)
		if err != nil {
			return err
		}
		result, err := h.productService.Search(term, page, limit)
		if err != nil {
			return err
		}
		return respondOK(c, "", result)
	}

	query := validation.FilterQuery{
		Category:  c.Query("category"),
		MinPrice:  c.Query("minPrice"),
		MaxPrice:  c.Query("maxPrice"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
		InStock:   c.Query("inStock"),
	}
	if err := validation.Filters(query); err != nil {
		return err
	}

	result, err := h.productService.List(page, limit, buildProductFilter(query))
	if err != nil {
		return err
	}
	result.Filters = echoFilters(query)
	return respondOK(c, "", result)
}

// HandleSearch matches products by name or description substring.
func (h *ProductHandler) HandleSearch(c *fiber.Ctx) error {
	term, err := validation.SearchTerm(c.Query("search"))
	if err != nil {
		return err
	}
	page, limit, err := validation.Pagination(c.Query("page"), c.Query("limit"))
	if err != nil {
		return err
	}

	result, err := h.productService.Search(term, page, limit)
	if err != nil {
		return err
	}
	return respondOK(c, "", result)
}

// HandleGetByID returns a single product with its images.
func (h *ProductHandler) HandleGetByID(c *fiber.Ctx) error {
	id, err := validation.ID("Product", c.Params("id"))
	if err != nil {
		return err
	}
	product, err := h.productService.GetByID(id)
	if err != nil {
		return err
	}
	return respondOK(c, "", product)
}

// HandleCreate creates a product, storing up to five uploaded images.
func (h *ProductHandler) HandleCreate(c *fiber.Ctx) error {
	input, files, err := h.parseProductRequest(c)
	if err != nil {
		return err
	}
	product, err := h.productService.Create(c.UserContext(), input, files)
	if err != nil {
		return err
	}
	return respondCreated(c, "Product created successfully", product)
}

// HandleUpdate updates a product; supplied images replace the existing set.
func (h *ProductHandler) HandleUpdate(c *fiber.Ctx) error {
	id, err := validation.ID("Product", c.Params("id"))
	if err != nil {
		return err
	}
	input, files, err := h.parseProductRequest(c)
	if err != nil {
		return err
	}
	product, err := h.productService.Update(c.UserContext(), id, input, files)
	if err != nil {
		return err
	}
	return respondOK(c, "Product updated successfully", product)
}

// HandleDelete removes a product, its image rows and its stored files.
func (h *ProductHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := validation.ID("Product", c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.productService.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return respondOK(c, "Product deleted successfully", nil)
}

// parseProductRequest binds the payload from either a JSON body or a
// multipart form (fields + image files) and validates it.
func (h *ProductHandler) parseProductRequest(c *fiber.Ctx) (services.ProductInput, []storage.UploadedFile, error) {
	var input services.ProductInput
	var files []storage.UploadedFile

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return input, nil, apperrors.BadRequest("Invalid multipart form")
		}
		files, err = storage.FilesFromForm(form)
		if err != nil {
			return input, nil, err
		}
		input, err = productInputFromForm(c)
		if err != nil {
			return input, nil, err
		}
	} else {
		if err := c.BodyParser(&input); err != nil {
			return input, nil, apperrors.BadRequest("Invalid request body")
		}
	}

	if err := validation.Struct(input); err != nil {
		return input, nil, err
	}
	return input, files, nil
}

func productInputFromForm(c *fiber.Ctx) (services.ProductInput, error) {
	input := services.ProductInput{Name: strings.TrimSpace(c.FormValue("name"))}
	var fields []apperrors.FieldError

	if v := c.FormValue("price"); v != "" {
		price, err := models.ParseDecimal(v)
		if err != nil {
			fields = append(fields, apperrors.FieldError{Field: "price", Message: "Price must be a valid positive number"})
		} else {
			input.Price = &price
		}
	}
	if v := c.FormValue("description"); v != "" {
		input.Description = &v
	}
	if v := c.FormValue("stock"); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil {
			fields = append(fields, apperrors.FieldError{Field: "stock", Message: "Stock must be a valid positive integer"})
		} else {
			input.Stock = &stock
		}
	}
	if v := c.FormValue("category"); v != "" {
		input.Category = &v
	}

	if len(fields) > 0 {
		return input, apperrors.Validation("Validation failed", fields)
	}
	return input, nil
}

func buildProductFilter(q validation.FilterQuery) repositories.ProductFilter {
	filter := repositories.ProductFilter{
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
	}
	if q.Category != "" {
		for _, cat := range strings.Split(q.Category, ",") {
			if trimmed := strings.TrimSpace(cat); trimmed != "" {
				filter.Categories = append(filter.Categories, trimmed)
			}
		}
	}
	if q.MinPrice != "" {
		if v, err := strconv.ParseFloat(q.MinPrice, 64); err == nil {
			filter.MinPrice = &v
		}
	}
	if q.MaxPrice != "" {
		if v, err := strconv.ParseFloat(q.MaxPrice, 64); err == nil {
			filter.MaxPrice = &v
		}
	}
	if q.InStock != "" {
		inStock := strings.EqualFold(q.InStock, "true")
		filter.InStock = &inStock
	}
	return filter
}

// echoFilters reflects the applied filter parameters back to the client.
func echoFilters(q validation.FilterQuery) map[string]string {
	filters := map[string]string{}
	for key, value := range map[string]string{
		"category":  q.Category,
		"minPrice":  q.MinPrice,
		"maxPrice":  q.MaxPrice,
		"sortBy":    q.SortBy,
		"sortOrder": q.SortOrder,
		"inStock":   q.InStock,
	} {
		if value != "" {
			filters[key] = value
		}
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}
