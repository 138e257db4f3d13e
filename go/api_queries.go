package platformserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pethttpmapper "github.com/Apurer/go-cqrs-platform/internal/domains/pets/adapters/http/mapper"
	petports "github.com/Apurer/go-cqrs-platform/internal/domains/pets/ports"
	storehttpmapper "github.com/Apurer/go-cqrs-platform/internal/domains/store/adapters/http/mapper"
	storeapp "github.com/Apurer/go-cqrs-platform/internal/domains/store/application"
	storeports "github.com/Apurer/go-cqrs-platform/internal/domains/store/ports"
)

// QueryAPI serves the read models. Views are eventually consistent with the
// command side.
type QueryAPI struct {
	pets   petports.ReadModel
	orders storeports.ReadModel
}

// NewQueryAPI creates a QueryAPI over the pet and order views.
func NewQueryAPI(pets petports.ReadModel, orders storeports.ReadModel) QueryAPI {
	return QueryAPI{pets: pets, orders: orders}
}

// Get /v1/tenants/:tenantId/pets/:id
func (api *QueryAPI) GetPet(c *gin.Context) {
	view, err := api.pets.Get(c.Request.Context(), c.Param("tenantId"), c.Param("id"))
	if errors.Is(err, petports.ErrNotFound) {
		problems.NotFound(c, "pet", c.Param("id"))
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, pethttpmapper.FromProjection(view))
}

// Get /v1/tenants/:tenantId/pets
func (api *QueryAPI) ListPets(c *gin.Context) {
	views, err := api.pets.List(c.Request.Context(), c.Param("tenantId"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if status := c.Query("status"); status != "" {
		filtered := views[:0]
		for _, v := range views {
			if v.Entity.Status == status {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}
	c.JSON(http.StatusOK, pethttpmapper.FromProjectionList(views))
}

// Get /v1/tenants/:tenantId/orders/:id
func (api *QueryAPI) GetOrder(c *gin.Context) {
	view, err := api.orders.Get(c.Request.Context(), c.Param("tenantId"), c.Param("id"))
	if errors.Is(err, storeports.ErrNotFound) {
		problems.NotFound(c, "order", c.Param("id"))
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, storehttpmapper.FromProjection(view))
}

// Get /v1/tenants/:tenantId/store/inventory
// Returns order quantities by status.
func (api *QueryAPI) GetInventory(c *gin.Context) {
	inventory, err := storeapp.Inventory(c.Request.Context(), api.orders, c.Param("tenantId"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, inventory)
}
