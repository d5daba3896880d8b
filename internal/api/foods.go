package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fangcao20/nutrition-app-sub000/internal/model"
	"github.com/fangcao20/nutrition-app-sub000/internal/store"
)

// createFoodRequest 新增食品请求，active 缺省为 true
type createFoodRequest struct {
	model.FoodRecord
	Active *bool `json:"active"`
}

// ListFoods 查询食品目录
// GET /api/foods?active=&q=&foodId=&limit=&offset=
func (h *Handler) ListFoods(c *gin.Context) {
	opts := store.FoodQueryOptions{
		FoodID: c.Query("foodId"),
		Search: c.Query("q"),
	}
	if v := c.Query("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "active must be true or false.")
			return
		}
		opts.Active = &active
	}
	opts.Limit, _ = strconv.Atoi(c.Query("limit"))
	opts.Offset, _ = strconv.Atoi(c.Query("offset"))

	foods, err := h.store.ListFoods(c.Request.Context(), opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": foods, "total": len(foods)})
}

// CreateFood 新增食品
// POST /api/foods
func (h *Handler) CreateFood(c *gin.Context) {
	var req createFoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}

	f := req.FoodRecord
	f.ID = 0
	f.FoodID = strings.TrimSpace(f.FoodID)
	f.OriginName = strings.TrimSpace(f.OriginName)
	f.FoodName = strings.TrimSpace(f.FoodName)
	f.Unit = strings.TrimSpace(f.Unit)
	if f.FoodID == "" || f.OriginName == "" || f.FoodName == "" || f.Unit == "" {
		badRequest(c, "Food ID, origin, food name and unit are required.")
		return
	}
	f.Active = req.Active == nil || *req.Active
	for _, slot := range f.Allocations {
		if !slot.Code.Valid() {
			badRequest(c, "Unknown allocation component "+string(slot.Code)+".")
			return
		}
	}

	ctx := c.Request.Context()
	id, err := h.store.CreateFood(ctx, &f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	created, err := h.store.GetFood(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetFood 获取单个食品
// GET /api/foods/:id
func (h *Handler) GetFood(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	f, err := h.store.GetFood(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// UpdateFood 更新食品可编辑字段（自然键不可修改）
// PATCH /api/foods/:id
func (h *Handler) UpdateFood(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var upd store.FoodUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	for _, slot := range upd.Allocations {
		if !slot.Code.Valid() {
			badRequest(c, "Unknown allocation component "+string(slot.Code)+".")
			return
		}
	}

	f, err := h.store.UpdateFood(c.Request.Context(), id, upd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// SetFoodActive 启用/停用食品
// POST /api/foods/:id/active
func (h *Handler) SetFoodActive(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Active *bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		badRequest(c, "active is required.")
		return
	}

	ctx := c.Request.Context()
	if err := h.store.SetFoodActive(ctx, id, *req.Active); err != nil {
		h.respondError(c, err)
		return
	}
	f, err := h.store.GetFood(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

// ListCatalog 列出目录字典
// GET /api/catalog/:kind
func (h *Handler) ListCatalog(c *gin.Context) {
	kind, ok := store.ParseCatalogKind(c.Param("kind"))
	if !ok {
		badRequest(c, "Unknown catalog "+c.Param("kind")+".")
		return
	}
	items, err := h.store.ListCatalog(c.Request.Context(), kind)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "items": items})
}
