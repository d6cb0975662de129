package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/internal/reminders"
	"github.com/nguyenvh/custodesk/internal/worktime"
	apperrors "github.com/nguyenvh/custodesk/pkg/errors"
	"github.com/nguyenvh/custodesk/pkg/logger"
	"github.com/nguyenvh/custodesk/pkg/validator"
)

// csvDateLayout is the date format used in import/export files.
const csvDateLayout = "02/01/2006"

var csvHeader = []string{
	"staff_code", "transaction_date", "parts_day", "room",
	"transaction_type", "asset_year", "asset_code", "note",
}

// CreateTransactionInput defines a borrow/return entry. Zero-valued date,
// shift, room, and note fall back to the worktime defaults for the staff
// member recording the entry.
type CreateTransactionInput struct {
	StaffCode       string    `json:"staff_code" validate:"required"`
	TransactionDate time.Time `json:"transaction_date"`
	PartsDay        string    `json:"parts_day" validate:"omitempty,oneof=Sáng Chiều"`
	Room            string    `json:"room"`
	TransactionType string    `json:"transaction_type" validate:"required,oneof=borrow return"`
	AssetYear       int       `json:"asset_year" validate:"required,min=20,max=99"`
	AssetCode       int       `json:"asset_code" validate:"required,min=1,max=999999"`
	Note            string    `json:"note"`
}

// ListTransactionsInput filters the transaction listing.
type ListTransactionsInput struct {
	StaffCode string
	Room      string
	Type      string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// ImportSummary reports a CSV import outcome. Bad rows are skipped, never
// fatal.
type ImportSummary struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
}

// TransactionService records asset borrow/return transactions and handles
// the CSV interchange used by the back office.
type TransactionService struct {
	db         *gorm.DB
	staff      *StaffService
	dispatcher *reminders.Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

// NewTransactionService constructs a TransactionService. The dispatcher is
// optional; when present each saved entry sends an in-app confirmation to
// the recording staff member.
func NewTransactionService(db *gorm.DB, staff *StaffService, dispatcher *reminders.Dispatcher) (*TransactionService, error) {
	if db == nil {
		return nil, errors.New("transaction service: db is required")
	}
	if staff == nil {
		return nil, errors.New("transaction service: staff service is required")
	}
	return &TransactionService{
		db:         db,
		staff:      staff,
		dispatcher: dispatcher,
		log:        logger.WithModule("transactions"),
		now:        time.Now,
	}, nil
}

// WithClock overrides the clock used for default resolution. Test hook.
func (s *TransactionService) WithClock(now func() time.Time) *TransactionService {
	if now != nil {
		s.now = now
	}
	return s
}

// Defaults returns the pre-filled form values for the given staff member
// at the current instant.
func (s *TransactionService) Defaults(ctx context.Context, username string) (worktime.Defaults, error) {
	staff, err := s.staff.GetByUsername(ensureContext(ctx), username)
	if err != nil {
		return worktime.Defaults{}, err
	}
	return worktime.ResolveDefaults(staff, s.now()), nil
}

// Create validates and persists one transaction, filling unset fields from
// the worktime defaults for the recording user.
func (s *TransactionService) Create(ctx context.Context, username string, input CreateTransactionInput) (*models.AssetTransaction, error) {
	ctx = ensureContext(ctx)

	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	if input.Room != "" && !worktime.IsRecognisedRoom(input.Room) {
		return nil, apperrors.NewValidation("unrecognised room code: " + input.Room)
	}

	staff, err := s.staff.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	defaults := worktime.ResolveDefaults(staff, s.now())
	if input.TransactionDate.IsZero() {
		input.TransactionDate = defaults.TransactionDate
	}
	if input.PartsDay == "" {
		input.PartsDay = defaults.PartsDay
	}
	if input.Room == "" {
		input.Room = defaults.Room
	}
	if input.Note == "" {
		input.Note = defaults.Note
	}

	tx := models.AssetTransaction{
		StaffCode:       strings.TrimSpace(input.StaffCode),
		TransactionDate: worktime.TruncateToDay(input.TransactionDate),
		PartsDay:        input.PartsDay,
		Room:            input.Room,
		TransactionType: input.TransactionType,
		AssetYear:       input.AssetYear,
		AssetCode:       input.AssetCode,
		Note:            strings.TrimSpace(input.Note),
	}

	if err := s.db.WithContext(ctx).Create(&tx).Error; err != nil {
		return nil, fmt.Errorf("transaction service: create transaction: %w", err)
	}

	s.confirm(ctx, username, &tx)
	return &tx, nil
}

// confirm sends the saved-transaction notification to the recording user.
// Confirmation failure never fails the create.
func (s *TransactionService) confirm(ctx context.Context, username string, tx *models.AssetTransaction) {
	if s.dispatcher == nil || strings.TrimSpace(username) == "" {
		return
	}

	content := reminders.Compose(reminders.KindTransactionSaved, reminders.Data{
		StaffCode:       tx.StaffCode,
		AssetYear:       tx.AssetYear,
		AssetCode:       tx.AssetCode,
		Room:            tx.Room,
		TransactionType: tx.TransactionType,
		TransactionDate: tx.TransactionDate,
		PartsDay:        tx.PartsDay,
		Message:         tx.Note,
	})

	result, err := s.dispatcher.Dispatch(ctx, reminders.DispatchInput{
		Recipients: []reminders.Recipient{{Username: username}},
		Content:    content,
		Kind:       reminders.KindTransactionSaved,
		Channels:   reminders.Channels{InApp: true, Push: true},
	})
	if err != nil || result.Error != "" {
		s.log.Warn("transaction confirmation delivery incomplete",
			zap.String("username", username),
			zap.Error(err))
	}
}

// Get loads one transaction.
func (s *TransactionService) Get(ctx context.Context, id string) (*models.AssetTransaction, error) {
	ctx = ensureContext(ctx)

	var tx models.AssetTransaction
	err := s.db.WithContext(ctx).Take(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("transaction service: load transaction: %w", err)
	}
	return &tx, nil
}

// List returns transactions newest first with the given filters.
func (s *TransactionService) List(ctx context.Context, input ListTransactionsInput) ([]models.AssetTransaction, error) {
	ctx = ensureContext(ctx)

	query := s.filtered(ctx, input)

	var rows []models.AssetTransaction
	if err := query.
		Order("transaction_date DESC, created_at DESC").
		Limit(clampLimit(input.Limit, 100, 1000)).
		Offset(maxInt(0, input.Offset)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("transaction service: list transactions: %w", err)
	}
	return rows, nil
}

// Delete removes a transaction record.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Delete(&models.AssetTransaction{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("transaction service: delete transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ExportCSV streams the filtered transactions as CSV.
func (s *TransactionService) ExportCSV(ctx context.Context, input ListTransactionsInput, w io.Writer) error {
	ctx = ensureContext(ctx)

	var rows []models.AssetTransaction
	if err := s.filtered(ctx, input).
		Order("transaction_date ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return fmt.Errorf("transaction service: export transactions: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("transaction service: write csv header: %w", err)
	}
	for _, tx := range rows {
		record := []string{
			tx.StaffCode,
			tx.TransactionDate.In(worktime.Location).Format(csvDateLayout),
			tx.PartsDay,
			tx.Room,
			tx.TransactionType,
			strconv.Itoa(tx.AssetYear),
			strconv.Itoa(tx.AssetCode),
			tx.Note,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("transaction service: write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ImportCSV reads rows from r and persists the valid ones. Invalid rows are
// reported in the summary and skipped; they never abort the import.
func (s *TransactionService) ImportCSV(ctx context.Context, username string, r io.Reader) (ImportSummary, error) {
	ctx = ensureContext(ctx)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return ImportSummary{}, apperrors.NewBadRequest("csv: missing header row")
	}
	if !strings.EqualFold(strings.Join(header, ","), strings.Join(csvHeader, ",")) {
		return ImportSummary{}, apperrors.NewBadRequest("csv: unexpected header row")
	}

	summary := ImportSummary{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			summary.Skipped = append(summary.Skipped, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		input, err := parseCSVRecord(record)
		if err != nil {
			summary.Skipped = append(summary.Skipped, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		if _, err := s.Create(ctx, username, input); err != nil {
			summary.Skipped = append(summary.Skipped, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		summary.Imported++
	}

	s.log.Info("csv import complete",
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", len(summary.Skipped)))
	return summary, nil
}

func parseCSVRecord(record []string) (CreateTransactionInput, error) {
	date, err := time.ParseInLocation(csvDateLayout, strings.TrimSpace(record[1]), worktime.Location)
	if err != nil {
		return CreateTransactionInput{}, fmt.Errorf("invalid transaction date %q", record[1])
	}

	year, err := strconv.Atoi(strings.TrimSpace(record[5]))
	if err != nil {
		return CreateTransactionInput{}, fmt.Errorf("invalid asset year %q", record[5])
	}
	code, err := strconv.Atoi(strings.TrimSpace(record[6]))
	if err != nil {
		return CreateTransactionInput{}, fmt.Errorf("invalid asset code %q", record[6])
	}

	return CreateTransactionInput{
		StaffCode:       strings.TrimSpace(record[0]),
		TransactionDate: date,
		PartsDay:        strings.TrimSpace(record[2]),
		Room:            strings.TrimSpace(record[3]),
		TransactionType: strings.TrimSpace(record[4]),
		AssetYear:       year,
		AssetCode:       code,
		Note:            strings.TrimSpace(record[7]),
	}, nil
}

func (s *TransactionService) filtered(ctx context.Context, input ListTransactionsInput) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.AssetTransaction{})
	if staffCode := strings.TrimSpace(input.StaffCode); staffCode != "" {
		query = query.Where("staff_code = ?", staffCode)
	}
	if room := strings.TrimSpace(input.Room); room != "" {
		query = query.Where("room = ?", room)
	}
	if txType := strings.TrimSpace(input.Type); txType != "" {
		query = query.Where("transaction_type = ?", txType)
	}
	if !input.From.IsZero() {
		query = query.Where("transaction_date >= ?", worktime.TruncateToDay(input.From))
	}
	if !input.To.IsZero() {
		query = query.Where("transaction_date <= ?", worktime.TruncateToDay(input.To))
	}
	return query
}
