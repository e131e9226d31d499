package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// NoContentAnswer is the reply when retrieval finds nothing to cite.
const NoContentAnswer = "No relevant content was found in the uploaded document for this question."

// UploadPrompt asks for a document. maxMB <= 0 leaves the limit out.
func UploadPrompt(maxMB int) string {
	if maxMB <= 0 {
		return "Please upload a PDF, Word (.docx) or Excel (.xlsx, .xls) file to begin."
	}
	return fmt.Sprintf("Please upload a PDF, Word (.docx) or Excel (.xlsx, .xls) file of up to %d MB to begin.", maxMB)
}

// UserMessage explains err in words suitable for the chat.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled before it finished."
	case errors.Is(err, models.ErrUnsupportedFormat):
		return "That file type is not supported."
	case errors.Is(err, models.ErrFileTooLarge):
		return "That file is larger than the upload limit."
	case errors.Is(err, models.ErrLoad):
		return "The file could not be read. It may be damaged, password protected, or contain no text."
	case errors.Is(err, models.ErrEmbeddingService):
		return "The embedding service is not available right now. Please try again in a moment."
	case errors.Is(err, models.ErrGeneration):
		return "An answer could not be generated right now. Please try again in a moment."
	case errors.Is(err, models.ErrNoFileProvided):
		return "No document has been uploaded yet."
	case errors.Is(err, models.ErrDocumentLoaded):
		return "This conversation already has a document. Start a new conversation to ask about another file."
	case errors.Is(err, models.ErrEmptyQuestion):
		return "Please type a question."
	case errors.Is(err, models.ErrSessionClosed):
		return "This conversation has ended."
	default:
		return "Something went wrong. Please try again."
	}
}

// Explain is UserMessage followed by the upload prompt while the session waits for a
// document.
func (s *Session) Explain(err error) string {
	msg := UserMessage(err)
	if s.State() != StateAwaitingUpload || errors.Is(err, models.ErrSessionClosed) {
		return msg
	}
	return msg + "\n\n" + UploadPrompt(s.MaxUploadMB())
}
