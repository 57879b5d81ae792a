package httpapi

import (
	"net/http"

	"model_gateway/internal/catalog"
	"model_gateway/internal/utils"
)

// handleModels lists the catalog in declaration order, optionally
// filtered by ?provider=.
func (d *Dependencies) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var descriptors []catalog.ModelDescriptor
	if provider := r.URL.Query().Get("provider"); provider != "" {
		descriptors = d.Catalog.ListByProvider(provider)
	} else {
		descriptors = d.Catalog.List()
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"models": descriptors})
}
