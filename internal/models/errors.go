package models

import "errors"

// Errors surfaced to the session orchestrator. Wrap them with fmt.Errorf("...: %w")
// and classify with errors.Is.
var (
	// ErrUnsupportedFormat: the uploaded file's extension is not one the loader accepts.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrLoad: the file has a supported extension but could not be read or parsed.
	ErrLoad = errors.New("failed to load document")
	// ErrFileTooLarge: the upload exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmbeddingService: the embedding provider failed (network, auth, quota, bad response).
	ErrEmbeddingService = errors.New("embedding service error")
	// ErrGeneration: the chat model failed to produce an answer.
	ErrGeneration = errors.New("answer generation error")
	// ErrNoFileProvided: a question arrived before any document was ingested.
	ErrNoFileProvided = errors.New("no file provided")
	// ErrDocumentLoaded: an upload arrived after the session already holds a document.
	ErrDocumentLoaded = errors.New("a document is already loaded")
	// ErrSessionClosed: the session was closed while the request was pending.
	ErrSessionClosed = errors.New("session closed")
	// ErrEmptyQuestion: the question is blank.
	ErrEmptyQuestion = errors.New("question cannot be empty")
)
