package prompt

import (
	"strings"

	"docchat/internal/models"
)

const (
	NoFilesContext = "No files uploaded yet."
	contextHeader  = "The user has uploaded the following documents:"
	blockSeparator = "---"
	dateLayout     = "2006-01-02"

	systemInstruction = "You are a helpful assistant that answers questions about the user's uploaded documents. " +
		"Answer only from the information contained in the documents below. " +
		"If the answer is not found in the documents, clearly state that the information is not available in the uploaded files. " +
		"When you use information from a document, cite the file name it came from. " +
		"Do not make up information."
)

// BuildContext renders the descriptive block for each file in order under a
// single header. An empty list yields NoFilesContext.
func BuildContext(files []models.IngestedFile) string {
	if len(files) == 0 {
		return NoFilesContext
	}
	blocks := make([]string, 0, len(files))
	for _, f := range files {
		var sb strings.Builder
		sb.WriteString("File: ")
		sb.WriteString(f.DisplayName)
		sb.WriteString("\nUploaded: ")
		sb.WriteString(f.UploadedAt.Format(dateLayout))
		sb.WriteString("\nSummary: ")
		sb.WriteString(f.Summary)
		blocks = append(blocks, sb.String())
	}
	return contextHeader + "\n\n" + strings.Join(blocks, "\n"+blockSeparator+"\n")
}

// BuildSystemPrompt wraps contextText in the grounding instructions sent as the
// system message.
func BuildSystemPrompt(contextText string) string {
	return systemInstruction + "\n\nDocuments:\n" + contextText
}
