package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mimir-aip/pathway-graph/pkg/network"
)

// NetworkHandler serves build records and stored networks
type NetworkHandler struct {
	catalog BuildCatalog
	logger  *zap.Logger
}

// NewNetworkHandler creates a new network handler
func NewNetworkHandler(catalog BuildCatalog, logger *zap.Logger) *NetworkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NetworkHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// HandleNetworks lists build records
func (h *NetworkHandler) HandleNetworks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	records, err := h.catalog.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleNetwork serves /api/networks/{id} (the network) and
// /api/networks/{id}/record (its build record)
func (h *NetworkHandler) HandleNetwork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/networks/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.Error(w, "Build ID is required", http.StatusBadRequest)
		return
	}

	switch sub {
	case "":
		n, err := h.catalog.Network(id)
		if err != nil {
			writeError(w, err)
			return
		}
		// headers must not be sent before encoding succeeds
		data, err := network.Marshal(n)
		if err != nil {
			h.logger.Error("Failed to encode network", zap.String("build_id", id), zap.Error(err))
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(data); err != nil {
			h.logger.Warn("Failed to write network response", zap.String("build_id", id), zap.Error(err))
		}
	case "record":
		record, err := h.catalog.Get(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}
