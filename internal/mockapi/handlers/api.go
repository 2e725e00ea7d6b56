package handlers

import (
	"net/http"

	"github.com/nkiryanov/novalite/internal/mockapi/handlers/render"
	"github.com/nkiryanov/novalite/internal/mockapi/handlers/userctx"
)

func handleMe() http.Handler {
	type response struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())
		render.JSON(w, response{ID: u.ID.String(), Username: u.Username, Role: u.Role})
	})
}

type item struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

var items = []item{
	{ID: 1, Name: "Gerador 150kVA", Status: "Disponível"},
	{ID: 2, Name: "Palco 10x8", Status: "Em uso"},
	{ID: 3, Name: "Kit iluminação LED", Status: "Manutenção"},
}

// Static list, only to have something protected to call
func handleItems() http.Handler {
	type response struct {
		Count   int    `json:"count"`
		Results []item `json:"results"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, response{Count: len(items), Results: items})
	})
}
