package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nguyenvh/custodesk/internal/services"
	"github.com/nguyenvh/custodesk/internal/worktime"
	apperrors "github.com/nguyenvh/custodesk/pkg/errors"
	"github.com/nguyenvh/custodesk/pkg/response"
)

// queryDateLayout is the date format accepted on list filters.
const queryDateLayout = "2006-01-02"

// TransactionHandler exposes asset transaction recording and CSV interchange.
type TransactionHandler struct {
	transactions *services.TransactionService
}

func NewTransactionHandler(transactions *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

// GET /api/transactions/defaults
func (h *TransactionHandler) Defaults(c *gin.Context) {
	defaults, err := h.transactions.Defaults(requestContext(c), currentUsername(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, defaults)
}

// POST /api/transactions
func (h *TransactionHandler) Create(c *gin.Context) {
	var req services.CreateTransactionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload"))
		return
	}

	tx, err := h.transactions.Create(requestContext(c), currentUsername(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, tx)
}

// GET /api/transactions
func (h *TransactionHandler) List(c *gin.Context) {
	input, err := listInputFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	rows, err := h.transactions.List(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows)
}

// GET /api/transactions/:id
func (h *TransactionHandler) Get(c *gin.Context) {
	tx, err := h.transactions.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tx)
}

// DELETE /api/transactions/:id
func (h *TransactionHandler) Delete(c *gin.Context) {
	if err := h.transactions.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GET /api/transactions/export
func (h *TransactionHandler) Export(c *gin.Context) {
	input, err := listInputFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := h.transactions.ExportCSV(requestContext(c), input, c.Writer); err != nil {
		response.Error(c, err)
	}
}

// POST /api/transactions/import (admin)
func (h *TransactionHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("a csv file upload is required"))
		return
	}
	defer file.Close()

	summary, err := h.transactions.ImportCSV(requestContext(c), currentUsername(c), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

func listInputFromQuery(c *gin.Context) (services.ListTransactionsInput, error) {
	input := services.ListTransactionsInput{
		StaffCode: c.Query("staff_code"),
		Room:      c.Query("room"),
		Type:      c.Query("type"),
		Limit:     queryInt(c, "limit"),
		Offset:    queryInt(c, "offset"),
	}

	if from := c.Query("from"); from != "" {
		parsed, err := time.ParseInLocation(queryDateLayout, from, worktime.Location)
		if err != nil {
			return input, apperrors.NewBadRequest("from must be YYYY-MM-DD")
		}
		input.From = parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.ParseInLocation(queryDateLayout, to, worktime.Location)
		if err != nil {
			return input, apperrors.NewBadRequest("to must be YYYY-MM-DD")
		}
		input.To = parsed
	}
	return input, nil
}
