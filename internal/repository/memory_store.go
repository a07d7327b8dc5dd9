package repository

import (
	"context"
	"sort"
	"sync"

	"BudgetCast/internal/domain/models"
	domrepo "BudgetCast/internal/domain/repository"
)

// MemoryTransactionStore keeps transactions in process memory.
type MemoryTransactionStore struct {
	mu         sync.RWMutex
	txs        map[int64][]models.Transaction
	categories map[string]models.Kind
	nextID     int64
}

var _ domrepo.TransactionStore = (*MemoryTransactionStore)(nil)

func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{
		txs:        make(map[int64][]models.Transaction),
		categories: make(map[string]models.Kind),
	}
}

// AddCategory registers a category so it is listed even without transactions.
func (s *MemoryTransactionStore) AddCategory(name string, kind models.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[name] = kind
}

// Add stores transactions, assigning ids to those without one.
func (s *MemoryTransactionStore) Add(txs ...models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		if tx.ID == 0 {
			s.nextID++
			tx.ID = s.nextID
		} else if tx.ID > s.nextID {
			s.nextID = tx.ID
		}
		if tx.Kind == "" {
			tx.Kind = models.KindExpense
		}
		if _, ok := s.categories[tx.Category]; !ok && tx.Category != "" {
			s.categories[tx.Category] = tx.Kind
		}
		s.txs[tx.PersonID] = append(s.txs[tx.PersonID], tx)
	}
}

// Replace swaps all transactions of one person.
func (s *MemoryTransactionStore) Replace(personID int64, txs []models.Transaction) {
	s.mu.Lock()
	delete(s.txs, personID)
	s.mu.Unlock()
	s.Add(txs...)
}

func (s *MemoryTransactionStore) ExpenseTransactions(_ context.Context, personID int64) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Transaction, 0, len(s.txs[personID]))
	for _, tx := range s.txs[personID] {
		if tx.Kind == models.KindExpense {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *MemoryTransactionStore) ExpenseCategories(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.categories))
	for name, kind := range s.categories {
		if kind == models.KindExpense {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryTransactionStore) Health(context.Context) error { return nil }

func (s *MemoryTransactionStore) Close() error { return nil }
