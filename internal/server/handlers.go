package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/simvault/simvault"
	"github.com/simvault/simvault/gate"
	"github.com/simvault/simvault/ledger"
	"github.com/simvault/simvault/registry"
)

// noDataMessage is returned when the vault holds no entries yet.
const noDataMessage = "No embeddings available."

type matchResponse struct {
	Ordinal    int           `json:"ordinal"`
	Record     ledger.Record `json:"record"`
	Score      float32       `json:"score"`
	Similarity float32       `json:"similarity"`
}

func toMatchResponses(matches []simvault.Match) []matchResponse {
	out := make([]matchResponse, len(matches))
	for i, m := range matches {
		out[i] = matchResponse{
			Ordinal:    m.Ordinal,
			Record:     m.Record,
			Score:      m.Score,
			Similarity: m.Similarity,
		}
	}
	return out
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "simvault",
		"status":    "ok",
		"kind":      s.cfg.Kind,
		"entries":   s.vault.Len(),
		"dimension": s.vault.Dimension(),
		"metric":    s.vault.Metric().String(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// submissionBody is the JSON form of a train or check request.
type submissionBody struct {
	Content  string        `json:"content"`
	Metadata ledger.Record `json:"metadata"`
}

// readSubmission accepts either a multipart upload (field "file" plus
// metadata form fields) or a JSON body with pre-extracted content.
func (s *Server) readSubmission(r *http.Request) ([]float32, ledger.Record, error) {
	ct := r.Header.Get("Content-Type")

	if strings.HasPrefix(ct, "multipart/") {
		data, header, rec, err := s.readUpload(r)
		if err != nil {
			return nil, ledger.Record{}, err
		}

		vec, err := s.encoder.EncodeBytes(r.Context(), data, header.Header.Get("Content-Type"))
		if err != nil {
			return nil, ledger.Record{}, err
		}

		return vec, rec, nil
	}

	var body submissionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, ledger.Record{}, errBadRequest("invalid JSON body")
	}
	if body.Content == "" {
		return nil, ledger.Record{}, errBadRequest("content is required")
	}

	vec, err := s.encoder.EncodeText(r.Context(), body.Content)
	if err != nil {
		return nil, ledger.Record{}, err
	}

	return vec, body.Metadata, nil
}

// readUpload parses a capped multipart upload and the metadata fields that
// accompany it.
func (s *Server) readUpload(r *http.Request) ([]byte, *multipart.FileHeader, ledger.Record, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return nil, nil, ledger.Record{}, errBadRequest("upload too large or malformed")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, ledger.Record{}, errBadRequest("file field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, ledger.Record{}, errBadRequest("reading upload failed")
	}

	rec := recordFromForm(r)
	if rec.Filename == "" {
		rec.Filename = header.Filename
	}

	return data, header, rec, nil
}

func recordFromForm(r *http.Request) ledger.Record {
	return ledger.Record{
		Filename:        r.FormValue("filename"),
		PatentID:        r.FormValue("patent_id"),
		BookID:          r.FormValue("book_id"),
		Title:           r.FormValue("title"),
		Author:          r.FormValue("author"),
		Category:        r.FormValue("category"),
		Description:     r.FormValue("description"),
		PublishedSource: r.FormValue("published_source"),
		DateOfCreation:  r.FormValue("date_of_creation"),
		WalletAddress:   r.FormValue("wallet_address"),
	}
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	vec, rec, err := s.readSubmission(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ordinal, err := s.vault.Insert(r.Context(), vec, rec)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Trained successfully.",
		"ordinal": ordinal,
	})
}

func (s *Server) handleCheckSimilarity(w http.ResponseWriter, r *http.Request) {
	vec, _, err := s.readSubmission(r)
	if err != nil {
		writeError(w, err)
		return
	}

	verdict, err := s.vault.CheckSimilarity(r.Context(), vec, s.cfg.K, s.cfg.Threshold)
	if err != nil {
		writeError(w, err)
		return
	}

	if verdict.NoData {
		writeJSON(w, http.StatusOK, map[string]any{
			"similar":   false,
			"matches":   []matchResponse{},
			"message":   noDataMessage,
			"threshold": s.cfg.Threshold,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"similar":   verdict.Similar,
		"matches":   toMatchResponses(verdict.Matches),
		"threshold": verdict.Threshold,
	})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	records := s.vault.Records()
	if records == nil {
		records = []ledger.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

type searchBody struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k"`
	Threshold *float32 `json:"threshold"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body searchBody
	if r.Method == http.MethodGet {
		body.Query = r.URL.Query().Get("query")
		if raw := r.URL.Query().Get("top_k"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, errBadRequest("top_k must be an integer"))
				return
			}
			body.TopK = n
		}
		if raw := r.URL.Query().Get("threshold"); raw != "" {
			f, err := strconv.ParseFloat(raw, 32)
			if err != nil {
				writeError(w, errBadRequest("threshold must be a number"))
				return
			}
			t := float32(f)
			body.Threshold = &t
		}
	} else if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errBadRequest("invalid JSON body"))
		return
	}
	if body.Query == "" {
		writeError(w, errBadRequest("query is required"))
		return
	}
	if body.TopK <= 0 {
		body.TopK = 5
	}

	vec, err := s.encoder.EncodeText(r.Context(), body.Query)
	if err != nil {
		writeError(w, err)
		return
	}

	threshold := s.cfg.Threshold
	if body.Threshold != nil {
		threshold = *body.Threshold
	}

	verdict, err := s.vault.CheckSimilarity(r.Context(), vec, body.TopK, threshold)
	if err != nil {
		writeError(w, err)
		return
	}

	if verdict.NoData {
		writeJSON(w, http.StatusOK, map[string]any{
			"results_found": 0,
			"results":       []matchResponse{},
			"message":       noDataMessage,
		})
		return
	}

	// Search reports only the matches that cross the threshold.
	kept := verdict.Conflicts

	writeJSON(w, http.StatusOK, map[string]any{
		"query":         body.Query,
		"threshold":     threshold,
		"results_found": len(kept),
		"results":       toMatchResponses(kept),
	})
}

type registerBody struct {
	PatentID        string   `json:"patent_id"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Claims          []string `json:"claims"`
	Category        string   `json:"category"`
	Description     string   `json:"description"`
	PublishedSource string   `json:"published_source"`
	DateOfCreation  string   `json:"date_of_creation"`
	WalletAddress   string   `json:"wallet_address"`
	Threshold       *float32 `json:"threshold"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errBadRequest("invalid JSON body"))
		return
	}
	if body.Abstract == "" {
		writeError(w, errBadRequest("abstract is required"))
		return
	}

	content := body.Abstract
	if len(body.Claims) > 0 {
		content += " " + strings.Join(body.Claims, " ")
	}

	out, err := s.gate.Register(r.Context(), gate.Submission{
		Record: ledger.Record{
			PatentID:        body.PatentID,
			Title:           body.Title,
			Category:        body.Category,
			Description:     body.Description,
			PublishedSource: body.PublishedSource,
			DateOfCreation:  body.DateOfCreation,
			WalletAddress:   body.WalletAddress,
		},
		Content:   content,
		Threshold: body.Threshold,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.writeOutcome(w, out)
}

func (s *Server) handleRegisterPDF(w http.ResponseWriter, r *http.Request) {
	data, _, rec, err := s.readUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var threshold *float32
	if raw := r.FormValue("threshold"); raw != "" {
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			writeError(w, errBadRequest("threshold must be a number"))
			return
		}
		t := float32(f)
		threshold = &t
	}

	out, err := s.gate.Register(r.Context(), gate.Submission{
		Record:    rec,
		PDF:       data,
		Threshold: threshold,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.writeOutcome(w, out)
}

func (s *Server) writeOutcome(w http.ResponseWriter, out *gate.Outcome) {
	if out.State == gate.StateRejected {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "rejected",
			"reason":  "semantically similar entries found",
			"similar": toMatchResponses(out.Matches),
		})
		return
	}

	resp := map[string]any{
		"status":  "approved",
		"ordinal": out.Ordinal,
		"cid":     out.CID,
		"ref":     out.Ref,
		// The neighbors consulted for the novelty decision, with their
		// scores.
		"matches": toMatchResponses(out.Matches),
	}
	if out.Sections.Abstract != "" {
		resp["title"] = out.Sections.Title
		resp["abstract"] = out.Sections.Abstract
		resp["claims"] = out.Sections.Claims
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	identity := id
	if !strings.Contains(id, ":") {
		// Bare IDs are interpreted in the service's kind.
		switch s.cfg.Kind {
		case "patent", "pdf":
			identity = "patent:" + id
		case "book":
			identity = "book:" + id
		default:
			identity = "file:" + id
		}
	}

	entry, err := s.gate.Lookup(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":  id,
		"cid": entry.CID,
		"ref": entry.Ref,
	})
}

func (s *Server) handleRegistered(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, errBadRequest("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	records := s.vault.RecentRecords(limit)

	// Newest first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

// badRequestError marks client errors that map to 400.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func errBadRequest(msg string) error { return &badRequestError{msg: msg} }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses; everything is
// returned as {"error": ...} like the rest of the API.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var (
		br *badRequestError
		dm *simvault.ErrDimensionMismatch
		ef *simvault.ErrExtractionFailed
		uf *simvault.ErrAnchorUploadFailed
		at *simvault.ErrAnchorTimeout
		or *simvault.ErrOutOfRange
	)

	switch {
	case errors.As(err, &br), errors.As(err, &dm), errors.Is(err, simvault.ErrInvalidK):
		status = http.StatusBadRequest
	case errors.As(err, &ef):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &uf):
		status = http.StatusBadGateway
	case errors.As(err, &at):
		status = http.StatusGatewayTimeout
	case errors.As(err, &or), errors.Is(err, registry.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, registry.ErrAlreadyRecorded):
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
