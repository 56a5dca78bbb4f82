package expense

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/deepgram/catgpt/internal/domain/expense/models"
	"github.com/deepgram/catgpt/pkg/logger"
)

const idRange = 10_000_000

var validate = validator.New(validator.WithRequiredStructEnabled())

var (
	ErrMissingField  = errors.New("all fields are required")
	ErrInvalidAmount = errors.New("amount must be a number")
)

// Service holds the submit form and the in-memory list of expenses
type Service struct {
	mu       sync.RWMutex
	form     models.Form
	expenses []models.Expense
	lastID   int64
	hasLast  bool

	random func() float64
	now    func() time.Time
}

func NewService() *Service {
	return &Service{
		random: rand.Float64,
		now:    time.Now,
	}
}

// Submit validates the form and, when it passes, prepends a new expense and
// clears the form. A failed submit changes nothing but the form contents.
func (s *Service) Submit(desc, amount string) (models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.form = models.Form{Desc: desc, Amount: amount}
	form := models.Form{Desc: strings.TrimSpace(desc), Amount: strings.TrimSpace(amount)}

	if err := validate.Struct(form); err != nil {
		return models.Expense{}, validationError(err)
	}

	value, err := strconv.ParseFloat(form.Amount, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		return models.Expense{}, ErrInvalidAmount
	}

	exp := models.Expense{
		ID:     int64(math.Round(idRange * s.random())),
		Desc:   form.Desc,
		Amount: value,
		Date:   s.now(),
	}

	s.expenses = append([]models.Expense{exp}, s.expenses...)
	s.form = models.Form{}
	s.lastID = exp.ID
	s.hasLast = true

	logger.Info(logger.EXPENSE, "Expense submitted! Expense ID: %d", exp.ID)
	return exp, nil
}

// validationError maps validator failures to the service's sentinel errors
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate expense: %w", err)
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return ErrMissingField
		}
	}
	return ErrInvalidAmount
}

// List returns expenses newest first
func (s *Service) List() []models.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Expense(nil), s.expenses...)
}

// LastID returns the id of the last accepted submission
func (s *Service) LastID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastID, s.hasLast
}

// Form returns the form as left by the last submit
func (s *Service) Form() models.Form {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.form
}
