package transport

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/medassureai/artifact-gateway/gateway"
	"github.com/medassureai/artifact-gateway/ingest"
	"github.com/medassureai/artifact-gateway/pkg/observability"
	"github.com/medassureai/artifact-gateway/sessions"
)

// IngestRoutes builds the ingestion-service router: document upload/status on
// top of the OCR pipeline and the analysis-session endpoints.
func IngestRoutes(pipe *ingest.Pipeline, sess *sessions.Store, logger zerolog.Logger, metrics observability.Provider) http.Handler {
	r := mux.NewRouter()
	r.Use(Observability(logger, metrics))

	r.HandleFunc("/", serviceInfo("ingest-api")).Methods(http.MethodGet)
	r.HandleFunc("/health", health).Methods(http.MethodGet)

	r.HandleFunc("/documents", uploadDocument(pipe)).Methods(http.MethodPost)
	r.HandleFunc("/documents/{projectID}/{fileID}", documentStatus(pipe)).Methods(http.MethodGet)

	r.HandleFunc("/sessions", createSession(sess)).Methods(http.MethodPost)
	r.HandleFunc("/sessions", listSessions(sess)).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", getSession(sess)).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", deleteSession(sess)).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/status", setSessionStatus(sess)).Methods(http.MethodPatch)
	r.HandleFunc("/sessions/{id}/messages", appendSessionMessage(sess)).Methods(http.MethodPost)

	return r
}

type documentResponse struct {
	gateway.Envelope
	Document *ingest.Document `json:"document,omitempty"`
}

type sessionResponse struct {
	gateway.Envelope
	Session *sessions.Session `json:"session,omitempty"`
}

type sessionListResponse struct {
	gateway.Envelope
	Sessions []sessions.Session `json:"sessions"`
	Count    int                `json:"count"`
}

func uploadDocument(pipe *ingest.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Margin over the document cap for the multipart framing; the
		// pipeline enforces the real limit against the part size.
		r.Body = http.MaxBytesReader(w, r.Body, ingest.MaxUploadSize+(1<<20))
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, "upload_document", gateway.NewValidationError("file", "is missing or exceeds the 50 MB limit"))
			return
		}
		defer file.Close()

		doc, err := pipe.Upload(r.Context(), ingest.UploadRequest{
			ProjectID: r.FormValue("project_id"),
			Filename:  header.Filename,
			Size:      header.Size,
			Body:      file,
		})
		if err != nil {
			WriteError(w, "upload_document", err)
			return
		}
		WriteJSON(w, http.StatusCreated, documentResponse{Envelope: gateway.OK(), Document: &doc})
	}
}

func documentStatus(pipe *ingest.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		doc, err := pipe.Status(r.Context(), vars["projectID"], vars["fileID"])
		if err != nil {
			WriteError(w, "document_status", err)
			return
		}
		WriteJSON(w, http.StatusOK, documentResponse{Envelope: gateway.OK(), Document: &doc})
	}
}

func createSession(store *sessions.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sessions.CreateRequest
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "create_session", err)
			return
		}
		created, err := store.Create(r.Context(), req)
		if err != nil {
			WriteError(w, "create_session", err)
			return
		}
		WriteJSON(w, http.StatusCreated, sessionResponse{Envelope: gateway.OK(), Session: &created})
	}
}

func listSessions(store *sessions.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListByProject(r.Context(), r.URL.Query().Get("project_id"))
		if err != nil {
			WriteError(w, "list_sessions", err)
			return
		}
		WriteJSON(w, http.StatusOK, sessionListResponse{
			Envelope: gateway.OK(),
			Sessions: list,
			Count:    len(list),
		})
	}
}

func getSession(store *sessions.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		found, err := store.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			WriteError(w, "get_session", err)
			return
		}
		WriteJSON(w, http.StatusOK, sessionResponse{Envelope: gateway.OK(), Session: &found})
	}
}

func setSessionStatus(store *sessions.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Status sessions.Status `json:"status"`
		}
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, "set_session_status", err)
			return
		}
		updated, err := store.SetStatus(r.Context(), mux.Vars(r)["id"], req.Status)
		if err != nil {
			WriteError(w, "set_session_status", err)
			return
		}
		WriteJSON(w, http.StatusOK, sessionResponse{Envelope: gateway.OK(), Session: &updated})
	}
}

func appendSessionMessage(store *sessions.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg sessions.Message
		if err := DecodeJSON(r, &msg); err != nil {
			WriteError(w, "append_session_message", err)
			return
		}
		updated, err := store.AppendMessage(r.Context(), mux.Vars(r)["id"], msg)
		if err != nil {
			WriteError(w, "append_session_message", err)
			return
		}
		WriteJSON(w, http.StatusOK, sessionResponse{Envelope: gateway.OK(), Session: &updated})
	}
}

func deleteSession(store *sessions.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
			WriteError(w, "delete_session", err)
			return
		}
		WriteJSON(w, http.StatusOK, gateway.OK())
	}
}
