package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tourcraft/tourcraft/internal/apperr"
	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/internal/entity/repository"
	"github.com/tourcraft/tourcraft/internal/entity/service"
	"github.com/tourcraft/tourcraft/internal/form"
	"github.com/tourcraft/tourcraft/internal/relations"
)

// EntityHandler serves the generic CRUD API of every registered collection.
type EntityHandler struct {
	accessors *service.Accessors
	checker   *relations.Checker
}

func NewEntityHandler(as *service.Accessors, checker *relations.Checker) *EntityHandler {
	return &EntityHandler{accessors: as, checker: checker}
}

// Register mounts the routes under rg:
//
//	GET    /schemas
//	GET    /entities/:collection
//	POST   /entities/:collection
//	GET    /entities/:collection/:id
//	PUT    /entities/:collection/:id
//	DELETE /entities/:collection/:id
//	GET    /entities/:collection/:id/can-delete
func (h *EntityHandler) Register(rg gin.IRouter) {
	rg.GET("/schemas", h.schemas)
	g := rg.Group("/entities/:collection")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.remove)
	g.GET("/:id/can-delete", h.canDelete)
}

func (h *EntityHandler) accessor(c *gin.Context) (*service.Accessor, bool) {
	a, err := h.accessors.For(c.Param("collection"))
	if err != nil {
		apperr.Respond(c, err)
		return nil, false
	}
	return a, true
}

func (h *EntityHandler) schemas(c *gin.Context) {
	type field struct {
		Name     string   `json:"name"`
		Kind     string   `json:"kind"`
		Ref      string   `json:"ref,omitempty"`
		Required bool     `json:"required,omitempty"`
		OneOf    []string `json:"oneOf,omitempty"`
	}
	out := []gin.H{}
	for _, s := range h.accessors.Registry().All() {
		fields := make([]field, 0, len(s.Fields))
		for _, f := range s.Fields {
			fields = append(fields, field{Name: f.Name, Kind: string(f.Kind), Ref: f.Ref, Required: f.Required, OneOf: f.OneOf})
		}
		out = append(out, gin.H{
			"type":         s.Type,
			"collection":   s.Collection,
			"displayField": s.DisplayField,
			"searchFields": s.SearchFields,
			"fields":       fields,
		})
	}
	c.JSON(http.StatusOK, out)
}

// list accepts ?sort=field, ?limit=n and equality filters on declared fields.
func (h *EntityHandler) list(c *gin.Context) {
	a, ok := h.accessor(c)
	if !ok {
		return
	}
	q, err := listQuery(a.Schema(), c)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	list, err := a.List(c.Request.Context(), q)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func listQuery(s entity.Schema, c *gin.Context) (repository.Query, error) {
	q := repository.Query{SortBy: c.Query("sort")}
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return q, apperr.BadRequest("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	for key, vals := range c.Request.URL.Query() {
		f, ok := s.Field(key)
		if !ok || len(vals) == 0 {
			continue
		}
		cond := repository.Condition{Field: key, Op: repository.OpEq, Value: vals[0]}
		switch f.Kind {
		case entity.KindRefList:
			cond.Op = repository.OpArrayContains
		case entity.KindObject:
			cond.Field = key + ".id"
		case entity.KindNumber:
			n, err := strconv.ParseFloat(vals[0], 64)
			if err != nil {
				return q, apperr.BadRequest(key + " must be a number")
			}
			cond.Value = n
		case entity.KindBool:
			b, err := strconv.ParseBool(vals[0])
			if err != nil {
				return q, apperr.BadRequest(key + " must be a boolean")
			}
			cond.Value = b
		}
		q.Conditions = append(q.Conditions, cond)
	}
	return q, nil
}

func (h *EntityHandler) get(c *gin.Context) {
	a, ok := h.accessor(c)
	if !ok {
		return
	}
	id := c.Param("id")
	rec, err := a.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if rec == nil {
		apperr.Respond(c, apperr.NotFound(a.Schema().Collection, id))
		return
	}
	c.JSON(http.StatusOK, rec)
}

func bindRecord(c *gin.Context) (entity.Record, bool) {
	// records are free-form maps; gin's binding validator only handles structs
	var body entity.Record
	if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
		apperr.Respond(c, apperr.BadRequest("invalid JSON body: "+err.Error()))
		return nil, false
	}
	if body == nil {
		body = entity.Record{}
	}
	return body, true
}

// create and update go through the form controller so that the same field
// rules apply to every client.
func (h *EntityHandler) create(c *gin.Context) {
	a, ok := h.accessor(c)
	if !ok {
		return
	}
	body, ok := bindRecord(c)
	if !ok {
		return
	}
	f := form.New(a.Schema(), a, nil, form.Callbacks{})
	if err := f.Load(c.Request.Context(), ""); err != nil {
		apperr.Respond(c, err)
		return
	}
	f.SetAll(body)
	id, err := f.Submit(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *EntityHandler) update(c *gin.Context) {
	a, ok := h.accessor(c)
	if !ok {
		return
	}
	body, ok := bindRecord(c)
	if !ok {
		return
	}
	id := c.Param("id")
	f := form.New(a.Schema(), a, nil, form.Callbacks{})
	if err := f.Load(c.Request.Context(), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	f.SetAll(body)
	if _, err := f.Submit(c.Request.Context()); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *EntityHandler) remove(c *gin.Context) {
	a, ok := h.accessor(c)
	if !ok {
		return
	}
	if err := a.Remove(c.Request.Context(), c.Param("id")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *EntityHandler) canDelete(c *gin.Context) {
	a, ok := h.accessor(c)
	if !ok {
		return
	}
	v, err := h.checker.CanDelete(c.Request.Context(), a.Schema().Collection, c.Param("id"))
	if err != nil {
		apperr.Respond(c, apperr.StoreOperation("can-delete "+a.Schema().Collection, err))
		return
	}
	c.JSON(http.StatusOK, v)
}
