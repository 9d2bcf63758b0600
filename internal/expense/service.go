package expense

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Matthew-Berthoud/Cape-Cash/internal/extraction"
	"github.com/Matthew-Berthoud/Cape-Cash/internal/mail"
	"github.com/Matthew-Berthoud/Cape-Cash/internal/report"
)

// IDGenerator generates unique IDs for receipts and expenses
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Renderer produces the report artifact.
type Renderer interface {
	Render(meta report.Meta, lines []report.Line, attachments []report.Attachment) ([]byte, error)
}

// Composer builds the pre-filled email draft.
type Composer interface {
	BuildDraft(name string, first, last time.Time) mail.Draft
}

// ErrNotFound is returned when an ID names nothing in the session.
var ErrNotFound = errors.New("not found")

// ErrNotSignedIn is returned when an operation needs a user and none signed in.
var ErrNotSignedIn = errors.New("not signed in")

// ErrDomainNotAllowed is returned when a login email is outside the allowed
// domain.
var ErrDomainNotAllowed = errors.New("email domain not allowed")

// LinkedReceiptError reports a deletion attempt on a receipt that expenses
// still reference; the caller confirms before retrying.
type LinkedReceiptError struct {
	ReceiptID  string
	ExpenseIDs []string
}

func (e *LinkedReceiptError) Error() string {
	return fmt.Sprintf("receipt %s is linked to %d expense(s)", e.ReceiptID, len(e.ExpenseIDs))
}

// ExportBlockedError reports why the export gate is closed.
type ExportBlockedError struct {
	Blockers []Blocker
}

func (e *ExportBlockedError) Error() string {
	reasons := make([]string, len(e.Blockers))
	for i, b := range e.Blockers {
		reasons[i] = string(b)
	}
	return "export blocked: " + strings.Join(reasons, ", ")
}

// UploadedFile is one raw file from an upload batch.
type UploadedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// extractionResult carries one receipt's extraction outcome to the apply
// loop.
type extractionResult struct {
	receiptID string
	data      *extraction.ExpenseData
	err       error
}

// Service orchestrates the reimbursement workflow: uploads, extraction,
// promotion, edits, and export.
type Service struct {
	store       *SessionStore
	blobs       BlobStore
	extractor   extraction.Extractor
	renderer    Renderer
	composer    Composer
	idGenerator IDGenerator
	timeSource  TimeSource
	emailDomain string

	results chan extractionResult
	done    chan struct{}
	pending sync.WaitGroup
}

// NewService creates a Service with the default ID generator and clock and
// starts its state-apply loop.
func NewService(store *SessionStore, blobs BlobStore, extractor extraction.Extractor, renderer Renderer, composer Composer, emailDomain string) *Service {
	return NewServiceWithDeps(store, blobs, extractor, renderer, composer, emailDomain, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with injected dependencies for
// testing.
func NewServiceWithDeps(store *SessionStore, blobs BlobStore, extractor extraction.Extractor, renderer Renderer, composer Composer, emailDomain string, idGen IDGenerator, timeSrc TimeSource) *Service {
	s := &Service{
		store:       store,
		blobs:       blobs,
		extractor:   extractor,
		renderer:    renderer,
		composer:    composer,
		idGenerator: idGen,
		timeSource:  timeSrc,
		emailDomain: emailDomain,
		results:     make(chan extractionResult),
		done:        make(chan struct{}),
	}
	go s.applyLoop()
	return s
}

// applyLoop is the single consumer of extraction results. Each result
// touches only its own receipt's fields, so completions arriving in any
// order never clobber each other.
func (s *Service) applyLoop() {
	for {
		select {
		case res := <-s.results:
			s.applyResult(res)
			s.pending.Done()
		case <-s.done:
			return
		}
	}
}

func (s *Service) applyResult(res extractionResult) {
	if res.err != nil {
		slog.Error("Failed to extract receipt", "receipt_id", res.receiptID, "error", res.err)
		s.store.UpdateReceipt(res.receiptID, func(r *Receipt) {
			if r.Status == StatusProcessing {
				r.Status = StatusError
				r.Extracted = nil
			}
		})
		return
	}
	s.store.UpdateReceipt(res.receiptID, func(r *Receipt) {
		if r.Status == StatusProcessing {
			r.Status = StatusCompleted
			r.Extracted = res.data
		}
	})
}

// Close stops the apply loop. In-flight extractions finish but their
// results are discarded.
func (s *Service) Close() {
	close(s.done)
}

// WaitForExtractions blocks until every dispatched extraction has been
// applied (or dropped on Close).
func (s *Service) WaitForExtractions() {
	s.pending.Wait()
}

// Login signs a user in if the email carries the allowed domain suffix, and
// derives a display name from the local part ("jane.doe" -> "Jane Doe").
func (s *Service) Login(email string) (User, error) {
	email = strings.TrimSpace(email)
	if !strings.HasSuffix(strings.ToLower(email), strings.ToLower(s.emailDomain)) {
		return User{}, fmt.Errorf("%w: access restricted to %s addresses", ErrDomainNotAllowed, s.emailDomain)
	}

	local := email[:strings.Index(email, "@")]
	parts := strings.Split(local, ".")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}

	user := User{
		Email:      email,
		Name:       strings.Join(parts, " "),
		Supervisor: "",
	}
	s.store.SetUser(user)
	return user, nil
}

// User returns the signed-in user.
func (s *Service) User() (User, error) {
	user, ok := s.store.User()
	if !ok {
		return User{}, ErrNotSignedIn
	}
	return user, nil
}

// UpdateUser applies the non-nil fields to the signed-in user.
func (s *Service) UpdateUser(name, supervisor *string) (User, error) {
	user, ok := s.store.UpdateUser(name, supervisor)
	if !ok {
		return User{}, ErrNotSignedIn
	}
	return user, nil
}

// sanitizeFilename cleans up a filename, dropping special characters and
// truncating phone-generated names to a sane length.
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`).ReplaceAllString(base, "")
	base = regexp.MustCompile(`\s+`).ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// AddReceipts ingests an upload batch: normalizes legacy camera formats
// (best-effort), saves payloads, and commits the whole batch atomically as
// pending before dispatching one independent extraction per receipt.
func (s *Service) AddReceipts(files []UploadedFile) ([]Receipt, error) {
	type staged struct {
		receipt Receipt
		data    []byte
	}
	batch := make([]staged, 0, len(files))

	cleanup := func() {
		for _, st := range batch {
			s.blobs.Delete(st.receipt.BlobKey)
		}
	}

	for _, file := range files {
		data := file.Data
		contentType := strings.ToLower(strings.TrimSpace(file.ContentType))
		filename := file.Filename

		converted, convertedType, err := extraction.NormalizeUpload(data, contentType)
		if err != nil {
			// Degrade gracefully: keep the original bytes and move on.
			slog.Warn("Failed to convert upload, keeping original",
				"filename", filename,
				"content_type", contentType,
				"error", err,
			)
		} else if convertedType != contentType {
			data = converted
			contentType = convertedType
			filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jpg"
		}

		id := s.idGenerator.Generate()
		cleanFilename := sanitizeFilename(filename)

		key, err := s.blobs.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("saving file: %w", err)
		}

		batch = append(batch, staged{
			receipt: Receipt{
				ID:          id,
				Filename:    cleanFilename,
				ContentType: contentType,
				BlobKey:     key,
				Status:      StatusPending,
			},
			data: data,
		})
	}

	receipts := make([]Receipt, len(batch))
	for i, st := range batch {
		receipts[i] = st.receipt
	}
	s.store.AddReceipts(receipts)

	// One independent extraction per receipt; a failure in one never
	// touches its siblings, and there is no retry.
	for _, st := range batch {
		s.store.UpdateReceipt(st.receipt.ID, func(r *Receipt) {
			r.Status = StatusProcessing
		})
		s.pending.Add(1)
		go s.extract(st.receipt.ID, st.data, st.receipt.ContentType)
	}

	return s.store.Receipts(), nil
}

func (s *Service) extract(receiptID string, data []byte, contentType string) {
	res := extractionResult{receiptID: receiptID}
	res.data, res.err = s.extractor.Extract(data, contentType)

	select {
	case s.results <- res:
	case <-s.done:
		s.pending.Done()
	}
}

// Receipts returns all receipts in upload order.
func (s *Service) Receipts() []Receipt {
	return s.store.Receipts()
}

// Receipt returns one receipt by ID.
func (s *Service) Receipt(id string) (Receipt, error) {
	r, ok := s.store.Receipt(id)
	if !ok {
		return Receipt{}, fmt.Errorf("receipt %s: %w", id, ErrNotFound)
	}
	return r, nil
}

// ReceiptFile returns a receipt's payload and content type.
func (s *Service) ReceiptFile(id string) ([]byte, string, error) {
	r, ok := s.store.Receipt(id)
	if !ok {
		return nil, "", fmt.Errorf("receipt %s: %w", id, ErrNotFound)
	}
	data, err := s.blobs.Get(r.BlobKey)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, r.ContentType, nil
}

// DeleteReceipt removes a receipt. When expenses still link to it the caller
// must pass confirmed=true; deletion then strips the reference from every
// expense before the receipt itself goes away.
func (s *Service) DeleteReceipt(id string, confirmed bool) error {
	linked := s.store.LinkedExpenseIDs(id)
	if len(linked) > 0 && !confirmed {
		return &LinkedReceiptError{ReceiptID: id, ExpenseIDs: linked}
	}

	r, ok := s.store.RemoveReceipt(id)
	if !ok {
		return fmt.Errorf("receipt %s: %w", id, ErrNotFound)
	}

	if err := s.blobs.Delete(r.BlobKey); err != nil {
		slog.Warn("Failed to delete receipt payload", "key", r.BlobKey, "error", err)
	}
	return nil
}

// PromoteReceipts derives expense rows from completed, unlinked receipts.
// Calling it again is a no-op for receipts already promoted.
func (s *Service) PromoteReceipts() []Expense {
	now := s.timeSource.Now()
	return s.store.MutateExpenses(func(expenses []Expense, receipts []Receipt) []Expense {
		return PromoteCompletedReceipts(expenses, receipts, s.idGenerator.Generate, now)
	})
}

// Expenses returns all expenses in display order.
func (s *Service) Expenses() []Expense {
	return s.store.Expenses()
}

// AddExpense appends a blank manual row to the bottom of the table.
func (s *Service) AddExpense() []Expense {
	row := NewManualExpense(s.idGenerator.Generate(), s.timeSource.Now())
	return s.store.MutateExpenses(func(expenses []Expense, _ []Receipt) []Expense {
		return append(expenses, row)
	})
}

// UpdateExpense applies one field edit. An unknown expense ID leaves the
// collection unchanged.
func (s *Service) UpdateExpense(id string, update FieldUpdate) []Expense {
	return s.store.MutateExpenses(func(expenses []Expense, _ []Receipt) []Expense {
		return UpdateExpenseField(expenses, id, update)
	})
}

// LinkReceipts replaces an expense's full linked-receipt set. Every supplied
// ID must name an existing receipt.
func (s *Service) LinkReceipts(expenseID string, receiptIDs []string) ([]Expense, error) {
	var linkErr error
	result := s.store.MutateExpenses(func(expenses []Expense, receipts []Receipt) []Expense {
		known := make(map[string]bool, len(receipts))
		for _, r := range receipts {
			known[r.ID] = true
		}
		for _, id := range receiptIDs {
			if !known[id] {
				linkErr = fmt.Errorf("receipt %s: %w", id, ErrNotFound)
				return expenses
			}
		}

		found := false
		for _, e := range expenses {
			if e.ID == expenseID {
				found = true
				break
			}
		}
		if !found {
			linkErr = fmt.Errorf("expense %s: %w", expenseID, ErrNotFound)
			return expenses
		}

		return SetLinkedReceipts(expenses, expenseID, receiptIDs)
	})
	if linkErr != nil {
		return nil, linkErr
	}
	return result, nil
}

// DeleteExpense removes one expense; receipts are unaffected.
func (s *Service) DeleteExpense(id string) error {
	if !s.store.DeleteExpense(id) {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	return nil
}

// ExportStatus reports whether export is permitted, the unmet conditions if
// not, and the current running total.
func (s *Service) ExportStatus() (bool, []Blocker, float64) {
	expenses := s.store.Expenses()
	user, _ := s.store.User()
	blockers := ExportBlockers(expenses, user)
	return len(blockers) == 0, blockers, ComputeTotal(expenses)
}

// RenderReport produces the PDF report. A closed export gate returns
// ExportBlockedError and renders nothing; a render failure leaves all state
// untouched.
func (s *Service) RenderReport() ([]byte, error) {
	expenses := s.store.Expenses()
	user, _ := s.store.User()

	if blockers := ExportBlockers(expenses, user); len(blockers) > 0 {
		return nil, &ExportBlockedError{Blockers: blockers}
	}

	lines := make([]report.Line, len(expenses))
	for i, e := range expenses {
		lines[i] = report.Line{
			Date:        e.Date,
			Category:    e.Category,
			Project:     e.Project,
			Description: e.Description,
			Amount:      e.Amount,
		}
	}

	// Appendix pages follow expense display order, then each expense's own
	// link order.
	var attachments []report.Attachment
	for _, e := range expenses {
		for _, receiptID := range e.LinkedReceiptIDs {
			r, ok := s.store.Receipt(receiptID)
			if !ok {
				continue
			}
			data, err := s.blobs.Get(r.BlobKey)
			if err != nil {
				slog.Warn("Skipping receipt with missing payload", "receipt_id", receiptID, "error", err)
				continue
			}
			attachments = append(attachments, report.Attachment{
				Data:        data,
				ContentType: r.ContentType,
			})
		}
	}

	meta := report.Meta{
		Name:       user.Name,
		Supervisor: user.Supervisor,
		Email:      user.Email,
	}

	artifact, err := s.renderer.Render(meta, lines, attachments)
	if err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	return artifact, nil
}

// EmailDraft builds the pre-filled email for the current expense set. Gated
// the same way as the report, since the draft accompanies it.
func (s *Service) EmailDraft() (mail.Draft, error) {
	expenses := s.store.Expenses()
	user, _ := s.store.User()

	if blockers := ExportBlockers(expenses, user); len(blockers) > 0 {
		return mail.Draft{}, &ExportBlockedError{Blockers: blockers}
	}

	first, last := dateRange(expenses, s.timeSource.Now())
	return s.composer.BuildDraft(user.Name, first, last), nil
}

// dateRange finds the earliest and latest parseable expense dates, falling
// back to now when nothing parses.
func dateRange(expenses []Expense, now time.Time) (time.Time, time.Time) {
	var first, last time.Time
	for _, e := range expenses {
		d := parseDay(e.Date)
		if d.IsZero() {
			continue
		}
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	}
	if first.IsZero() {
		return now, now
	}
	return first, last
}
