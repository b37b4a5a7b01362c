package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spigell/smartintern/internal/dialogue"
	"github.com/spigell/smartintern/internal/document"
	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/jobs"
	"github.com/spigell/smartintern/internal/resume"
)

type parseResumeResponse struct {
	Profile       resume.CandidateProfile `json:"profile"`
	AssistedError string                  `json:"assisted_error,omitempty"`
}

type chatRequest struct {
	Query   string                  `json:"query"`
	Profile resume.CandidateProfile `json:"profile"`
	History []dialogue.Turn         `json:"history"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

type retrieveRequest struct {
	Country string                  `json:"country"`
	Profile resume.CandidateProfile `json:"profile"`
	History []dialogue.Turn         `json:"history"`
}

type retrieveResponse struct {
	Query string         `json:"query"`
	Jobs  []jobs.Posting `json:"jobs"`
}

type filterRequest struct {
	Jobs    []jobs.Posting          `json:"jobs"`
	Profile resume.CandidateProfile `json:"profile"`
	History []dialogue.Turn         `json:"history"`
	TopK    *int                    `json:"top_k"`
}

type matchResponse struct {
	Job   jobs.Posting `json:"job"`
	Score float64      `json:"score"`
}

type filterResponse struct {
	Matches []matchResponse `json:"matches"`
}

type coverLetterRequest struct {
	Profile resume.CandidateProfile `json:"profile"`
	Job     jobs.Posting            `json:"job"`
}

type coverLetterResponse struct {
	CoverLetter string `json:"cover_letter"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseResume handles POST /parse_resume.
func (s *Server) parseResume(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, fmt.Errorf("%w: file is larger than %d bytes", errs.ErrInput, s.maxUploadBytes))
			return
		}
		s.writeError(w, fmt.Errorf("%w: invalid multipart form: %w", errs.ErrInput, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: form field \"file\" is required", errs.ErrInput))
		return
	}
	defer file.Close()

	format, err := document.FormatFromFilename(header.Filename)
	if err != nil {
		s.writeError(w, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: read upload: %w", errs.ErrInput, err))
		return
	}

	country := strings.TrimSpace(r.FormValue("country"))
	result, err := s.parser.Parse(r.Context(), document.Raw{Data: data, Format: format}, country)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := parseResumeResponse{Profile: result.Profile}
	if assistedErr := result.AssistedError(); assistedErr != nil {
		resp.AssistedError = errs.Message(assistedErr)
	}
	writeJSON(w, http.StatusOK, resp)
}

// chat handles POST /chat.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}

	answer, err := s.responder.Respond(r.Context(), req.Profile, req.History, req.Query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Answer: answer})
}

// retrieveJobs handles POST /retrieve_jobs.
func (s *Server) retrieveJobs(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if !s.decode(w, r, &req) {
		return
	}

	retrieval, err := s.matcher.Retrieve(r.Context(), req.Profile, req.History, req.Country)
	if err != nil {
		s.writeError(w, err)
		return
	}

	postings := retrieval.Postings
	if postings == nil {
		postings = []jobs.Posting{}
	}
	writeJSON(w, http.StatusOK, retrieveResponse{Query: retrieval.Query, Jobs: postings})
}

// filterJobs handles POST /filter_jobs.
func (s *Server) filterJobs(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !s.decode(w, r, &req) {
		return
	}

	topK := s.topK
	if req.TopK != nil {
		topK = *req.TopK
	}

	matches, err := s.matcher.Rank(r.Context(), req.Profile, req.History, req.Jobs, topK)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := filterResponse{Matches: make([]matchResponse, 0, len(matches))}
	for _, m := range matches {
		resp.Matches = append(resp.Matches, matchResponse{Job: m.Item, Score: m.Score})
	}
	writeJSON(w, http.StatusOK, resp)
}

// coverLetter handles POST /cover_letter.
func (s *Server) coverLetter(w http.ResponseWriter, r *http.Request) {
	var req coverLetterRequest
	if !s.decode(w, r, &req) {
		return
	}

	letter, err := s.letters.Write(r.Context(), req.Profile, req.Job)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coverLetterResponse{CoverLetter: letter})
}
