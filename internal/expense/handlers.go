package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// maxUploadSize bounds a whole upload batch; high-resolution phone photos
// need headroom.
const maxUploadSize = int64(50 << 20) // 50MB

// writeJSON writes a JSON response body with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body with the given status
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type loginRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// handleLogin signs the user in after the domain-suffix check
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "A valid email address is required")
		return
	}

	user, err := s.service.Login(req.Email)
	if err != nil {
		if errors.Is(err, ErrDomainNotAllowed) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleGetUser returns the signed-in user
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.service.User()
	if err != nil {
		writeError(w, http.StatusNotFound, "Not signed in")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Name       *string `json:"name"`
	Supervisor *string `json:"supervisor"`
}

// handleUpdateUser applies partial updates to the signed-in user
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.service.UpdateUser(req.Name, req.Supervisor)
	if err != nil {
		writeError(w, http.StatusNotFound, "Not signed in")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleListReceipts returns all receipts in upload order
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts := s.service.Receipts()
	if receipts == nil {
		receipts = []Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleUploadReceipts ingests a multipart batch of receipt files
func (s *Server) handleUploadReceipts(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		message := "Error parsing form"
		if err.Error() == "http: request body too large" {
			message = "Upload is too large. Maximum size is 50MB. Please compress or resize your images."
		}
		writeError(w, http.StatusBadRequest, message)
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "No files were selected. Please choose at least one file to upload.")
		return
	}

	files := make([]UploadedFile, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		f, err := header.Open()
		if err != nil {
			slog.Error("Error opening uploaded file", "filename", header.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			slog.Error("Error reading file data", "filename", header.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
			return
		}

		files = append(files, UploadedFile{
			Filename:    header.Filename,
			ContentType: contentTypeFor(header.Header.Get("Content-Type"), header.Filename),
			Data:        data,
		})
	}

	receipts, err := s.service.AddReceipts(files)
	if err != nil {
		slog.Error("Error adding receipts", "error", err)
		writeError(w, http.StatusInternalServerError, "Error processing upload. Please try again.")
		return
	}

	writeJSON(w, http.StatusCreated, receipts)
}

// contentTypeFor falls back to an extension-based media type when the
// browser didn't declare one.
func contentTypeFor(declared, filename string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.Receipt(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Receipt not found")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns the payload for a receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.ReceiptFile(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReceipt deletes a receipt, asking for confirmation first when
// expenses still link to it
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	confirmed := r.URL.Query().Get("confirm") == "true"

	err := s.service.DeleteReceipt(r.PathValue("id"), confirmed)
	if err != nil {
		var linkedErr *LinkedReceiptError
		if errors.As(err, &linkedErr) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":              "This receipt is linked to an expense item. Deleting it will remove it from the expense.",
				"linked_expense_ids": linkedErr.ExpenseIDs,
			})
			return
		}
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Receipt not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error deleting receipt")
		return
	}

	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handlePromote converts completed, unlinked receipts into expense rows
func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.PromoteReceipts())
}

// handleListExpenses returns all expenses in display order
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses := s.service.Expenses()
	if expenses == nil {
		expenses = []Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

// handleAddExpense appends a blank manual row
func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, s.service.AddExpense())
}

type updateExpenseRequest struct {
	Field string          `json:"field" validate:"required,oneof=date amount category project description isReviewed"`
	Value json.RawMessage `json:"value" validate:"required"`
}

// decodeFieldUpdate turns a dynamic {field, value} edit into its typed
// variant, enforcing the boundary rules the engine itself does not: date
// format, non-negative amount, allowed category/project values.
func (s *Server) decodeFieldUpdate(req updateExpenseRequest) (FieldUpdate, error) {
	switch req.Field {
	case "date":
		var v string
		if err := json.Unmarshal(req.Value, &v); err != nil {
			return nil, fmt.Errorf("date must be a string")
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return nil, fmt.Errorf("date must be in YYYY-MM-DD format")
		}
		return DateUpdate{Value: v}, nil
	case "amount":
		var v float64
		if err := json.Unmarshal(req.Value, &v); err != nil {
			return nil, fmt.Errorf("amount must be a number")
		}
		if err := s.validate.Var(v, "gte=0"); err != nil {
			return nil, fmt.Errorf("amount must not be negative")
		}
		return AmountUpdate{Value: v}, nil
	case "category":
		var v string
		if err := json.Unmarshal(req.Value, &v); err != nil {
			return nil, fmt.Errorf("category must be a string")
		}
		if err := s.validate.Var(v, "expense_category"); err != nil {
			return nil, fmt.Errorf("category is not in the allowed list")
		}
		return CategoryUpdate{Value: v}, nil
	case "project":
		var v string
		if err := json.Unmarshal(req.Value, &v); err != nil {
			return nil, fmt.Errorf("project must be a string")
		}
		if err := s.validate.Var(v, "expense_project"); err != nil {
			return nil, fmt.Errorf("project is not in the allowed list")
		}
		return ProjectUpdate{Value: v}, nil
	case "description":
		var v string
		if err := json.Unmarshal(req.Value, &v); err != nil {
			return nil, fmt.Errorf("description must be a string")
		}
		return DescriptionUpdate{Value: v}, nil
	case "isReviewed":
		var v bool
		if err := json.Unmarshal(req.Value, &v); err != nil {
			return nil, fmt.Errorf("isReviewed must be a boolean")
		}
		return ReviewedUpdate{Value: v}, nil
	}
	return nil, fmt.Errorf("unknown field %q", req.Field)
}

// handleUpdateExpense applies one validated field edit
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req updateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "A field name and value are required")
		return
	}

	update, err := s.decodeFieldUpdate(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.service.UpdateExpense(r.PathValue("id"), update))
}

type linkReceiptsRequest struct {
	ReceiptIDs []string `json:"receipt_ids"`
}

// handleLinkReceipts replaces an expense's full linked-receipt set
func (s *Server) handleLinkReceipts(w http.ResponseWriter, r *http.Request) {
	var req linkReceiptsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ReceiptIDs == nil {
		req.ReceiptIDs = []string{}
	}

	expenses, err := s.service.LinkReceipts(r.PathValue("id"), req.ReceiptIDs)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Error linking receipts")
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// handleDeleteExpense removes one expense
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteExpense(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, "Expense not found")
		return
	}
	setCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleExportStatus reports the export gate with its individual blockers
// and the running total
func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	allowed, blockers, total := s.service.ExportStatus()
	if blockers == nil {
		blockers = []Blocker{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"allowed": allowed,
		"reasons": blockers,
		"total":   total,
	})
}

// blockedResponse writes the 409 body for a closed export gate
func blockedResponse(w http.ResponseWriter, blockedErr *ExportBlockedError) {
	writeJSON(w, http.StatusConflict, map[string]any{
		"error":   "Export is not permitted yet",
		"reasons": blockedErr.Blockers,
	})
}

// handleExportReport renders and returns the PDF report
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.service.RenderReport()
	if err != nil {
		var blockedErr *ExportBlockedError
		if errors.As(err, &blockedErr) {
			blockedResponse(w, blockedErr)
			return
		}
		slog.Error("Error rendering report", "error", err)
		writeError(w, http.StatusInternalServerError, "Error generating report")
		return
	}

	filename := fmt.Sprintf("expense_report_%s.pdf", time.Now().Format("2006-01-02"))
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(artifact)
}

// handleExportEmail returns the pre-filled draft and a Gmail compose link
func (s *Server) handleExportEmail(w http.ResponseWriter, r *http.Request) {
	draft, err := s.service.EmailDraft()
	if err != nil {
		var blockedErr *ExportBlockedError
		if errors.As(err, &blockedErr) {
			blockedResponse(w, blockedErr)
			return
		}
		writeError(w, http.StatusInternalServerError, "Error composing email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"draft":     draft,
		"gmail_url": draft.GmailURL(),
	})
}

// handleExportEmailEML returns the draft as a downloadable RFC 822 message
func (s *Server) handleExportEmailEML(w http.ResponseWriter, r *http.Request) {
	draft, err := s.service.EmailDraft()
	if err != nil {
		var blockedErr *ExportBlockedError
		if errors.As(err, &blockedErr) {
			blockedResponse(w, blockedErr)
			return
		}
		writeError(w, http.StatusInternalServerError, "Error composing email")
		return
	}

	user, err := s.service.User()
	if err != nil {
		writeError(w, http.StatusNotFound, "Not signed in")
		return
	}

	message, err := draft.EML(user.Email)
	if err != nil {
		slog.Error("Error rendering email draft", "error", err)
		writeError(w, http.StatusInternalServerError, "Error composing email")
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "message/rfc822")
	w.Header().Set("Content-Disposition", `attachment; filename="expense_report.eml"`)
	w.Write(message)
}
