package transport

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/medassureai/artifact-gateway/artifacts"
	"github.com/medassureai/artifact-gateway/dynstore"
	"github.com/medassureai/artifact-gateway/gateway"
	"github.com/medassureai/artifact-gateway/pkg/observability"
)

// DynamoRoutes builds the document-service router: the raw document verbs
// under /tools and the artifact-tree layer on top of them.
func DynamoRoutes(docs *dynstore.Store, arts *artifacts.Store, logger zerolog.Logger, metrics observability.Provider) http.Handler {
	r := mux.NewRouter()
	r.Use(Observability(logger, metrics))

	r.HandleFunc("/", serviceInfo("dynamodb-mcp")).Methods(http.MethodGet)
	r.HandleFunc("/health", health).Methods(http.MethodGet)

	tools := r.PathPrefix("/tools").Subrouter()
	tools.HandleFunc("/put_item", putItem(docs)).Methods(http.MethodPost)
	tools.HandleFunc("/get_item", getItem(docs)).Methods(http.MethodPost)
	tools.HandleFunc("/update_item", updateItem(docs)).Methods(http.MethodPost)
	tools.HandleFunc("/delete_item", deleteItem(docs)).Methods(http.MethodPost)
	tools.HandleFunc("/query", queryItems(docs)).Methods(http.MethodPost)
	tools.HandleFunc("/scan", scanItems(docs)).Methods(http.MethodPost)

	r.HandleFunc("/artifacts/projects", saveProject(arts)).Methods(http.MethodPost)
	r.HandleFunc("/artifacts/projects/{projectID}", loadProject(arts)).Methods(http.MethodGet)
	r.HandleFunc("/artifacts/projects/{projectID}/summary", projectSummary(arts)).Methods(http.MethodGet)
	r.HandleFunc("/artifacts/projects/{projectID}/ticket-ref", setTicketRef(arts)).Methods(http.MethodPatch)

	return r
}

func putItem(docs *dynstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dynstore.PutRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "put_item", err)
			return
		}
		res, err := docs.Put(r.Context(), req)
		if err != nil {
			WriteJSON(w, StatusFor(err), res)
			return
		}
		WriteJSON(w, http.StatusCreated, res)
	}
}

func getItem(docs *dynstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dynstore.GetRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "get_item", err)
			return
		}
		res, err := docs.Get(r.Context(), req)
		if err != nil {
			WriteJSON(w, StatusFor(err), res)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

func updateItem(docs *dynstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dynstore.UpdateRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "update_item", err)
			return
		}
		res, err := docs.Update(r.Context(), req)
		if err != nil {
			WriteJSON(w, StatusFor(err), res)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

func deleteItem(docs *dynstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dynstore.DeleteRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "delete_item", err)
			return
		}
		res, err := docs.Delete(r.Context(), req)
		if err != nil {
			WriteJSON(w, StatusFor(err), res)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

func queryItems(docs *dynstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dynstore.QueryRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "query", err)
			return
		}
		res, err := docs.Query(r.Context(), req)
		if err != nil {
			WriteJSON(w, StatusFor(err), res)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

func scanItems(docs *dynstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dynstore.ScanRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "scan", err)
			return
		}
		res, err := docs.Scan(r.Context(), req)
		if err != nil {
			WriteJSON(w, StatusFor(err), res)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

type summaryResponse struct {
	gateway.Envelope
	Summary *artifacts.Summary `json:"summary,omitempty"`
}

type projectResponse struct {
	gateway.Envelope
	Project *artifacts.Project `json:"project,omitempty"`
}

func saveProject(arts *artifacts.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var project artifacts.Project
		if err := DecodeJSON(r, &project); err != nil {
			WriteError(w, "save_project", err)
			return
		}
		summary, err := arts.Save(r.Context(), project)
		if err != nil {
			WriteError(w, "save_project", err)
			return
		}
		WriteJSON(w, http.StatusCreated, summaryResponse{Envelope: gateway.OK(), Summary: &summary})
	}
}

func loadProject(arts *artifacts.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := arts.Load(r.Context(), mux.Vars(r)["projectID"])
		if err != nil {
			WriteError(w, "load_project", err)
			return
		}
		WriteJSON(w, http.StatusOK, projectResponse{Envelope: gateway.OK(), Project: &project})
	}
}

func projectSummary(arts *artifacts.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := arts.Summary(r.Context(), mux.Vars(r)["projectID"])
		if err != nil {
			WriteError(w, "project_summary", err)
			return
		}
		WriteJSON(w, http.StatusOK, summaryResponse{Envelope: gateway.OK(), Summary: &summary})
	}
}

func setTicketRef(arts *artifacts.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req artifacts.TicketRefRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "set_ticket_ref", err)
			return
		}
		// The path owns the project id.
		req.ProjectID = mux.Vars(r)["projectID"]
		if err := arts.SetTicketRef(r.Context(), req); err != nil {
			WriteError(w, "set_ticket_ref", err)
			return
		}
		WriteJSON(w, http.StatusOK, gateway.OK())
	}
}
