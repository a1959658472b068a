package transport

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/medassureai/artifact-gateway/jirastore"
	"github.com/medassureai/artifact-gateway/pkg/observability"
)

// JiraRoutes builds the ticket-service router. Every tool endpoint decodes
// one request struct, runs the store verb and renders the verb's envelope;
// the status code follows the error kind.
func JiraRoutes(store *jirastore.Store, logger zerolog.Logger, metrics observability.Provider) http.Handler {
	r := mux.NewRouter()
	r.Use(Observability(logger, metrics))

	r.HandleFunc("/", serviceInfo("jira-mcp")).Methods(http.MethodGet)
	r.HandleFunc("/health", health).Methods(http.MethodGet)

	tools := r.PathPrefix("/tools").Subrouter()
	tools.HandleFunc("/create_issue", createIssue(store)).Methods(http.MethodPost)
	tools.HandleFunc("/create_issues_batch", createIssuesBatch(store)).Methods(http.MethodPost)
	tools.HandleFunc("/update_issue", updateIssue(store)).Methods(http.MethodPost)
	tools.HandleFunc("/delete_issue", deleteIssue(store)).Methods(http.MethodPost)
	tools.HandleFunc("/get_issue", getIssue(store)).Methods(http.MethodPost)
	tools.HandleFunc("/search_issues", searchIssues(store)).Methods(http.MethodPost)

	return r
}

func createIssue(store *jirastore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jirastore.CreateIssueRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "create_issue", err)
			return
		}
		res, err := store.CreateIssue(r.Context(), req)
		if err != nil {
			WriteJSON(w, StatusFor(err), res)
			return
		}
		WriteJSON(w, http.StatusCreated, res)
	}
}

func createIssuesBatch(store *jirastore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jirastore.CreateBatchRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "create_issues_batch", err)
			return
		}
		res, err := store.CreateIssuesBatch(r.Context(), req)
		if err != nil {
			// Partial results ride along so callers can reconcile what was
			// created before the failure.
			WriteJSON(w, StatusFor(err), res)
			return
		}
		WriteJSON(w, http.StatusCreated, res)
	}
}

func updateIssue(store *jirastore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jirastore.UpdateIssueRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "update_issue", err)
			return
		}
		res, err := store.UpdateIssue(r.Context(), req)
		if err != nil {
			WriteJSON(w, StatusFor(err), res)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

func deleteIssue(store *jirastore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jirastore.DeleteIssueRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "delete_issue", err)
			return
		}
		res, err := store.DeleteIssue(r.Context(), req)
		if err != nil {
			WriteJSON(w, StatusFor(err), res)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

func getIssue(store *jirastore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jirastore.GetIssueRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "get_issue", err)
			return
		}
		res, err := store.GetIssue(r.Context(), req)
		if err != nil {
			WriteJSON(w, StatusFor(err), res)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

func searchIssues(store *jirastore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jirastore.SearchRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "search_issues", err)
			return
		}
		res, err := store.SearchIssues(r.Context(), req)
		if err != nil {
			WriteJSON(w, StatusFor(err), res)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}
