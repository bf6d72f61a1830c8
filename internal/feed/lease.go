package feed

import (
	"sync"
	"time"
)

// lease.go - TTL-аренды по ключу
//
// Единственный механизм дедупликации ордеров: аренда берётся до запуска
// асинхронной обработки и снимается по её завершении. Если обработчик
// завис или упал без снятия - аренда истекает сама по TTL и ордер
// снова доступен следующему циклу.

// LeaseSet - потокобезопасный набор арендованных ключей с TTL
type LeaseSet struct {
	mu      sync.Mutex
	expiry  map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
	sweepAt time.Time
}

// NewLeaseSet создаёт набор аренд с указанным TTL
func NewLeaseSet(ttl time.Duration) *LeaseSet {
	return &LeaseSet{
		expiry: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Acquire берёт аренду на ключ
//
// false = ключ уже арендован и аренда не истекла.
func (s *LeaseSet) Acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	if deadline, ok := s.expiry[key]; ok && now.Before(deadline) {
		return false
	}
	s.expiry[key] = now.Add(s.ttl)
	return true
}

// Release снимает аренду с ключа
func (s *LeaseSet) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expiry, key)
}

// Active проверяет арендован ли ключ
func (s *LeaseSet) Active(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.expiry[key]
	return ok && s.now().Before(deadline)
}

// Len возвращает количество живых аренд
func (s *LeaseSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for _, deadline := range s.expiry {
		if now.Before(deadline) {
			count++
		}
	}
	return count
}

// sweep удаляет истёкшие записи, не чаще раза в TTL
func (s *LeaseSet) sweep(now time.Time) {
	if now.Before(s.sweepAt) {
		return
	}
	for key, deadline := range s.expiry {
		if !now.Before(deadline) {
			delete(s.expiry, key)
		}
	}
	s.sweepAt = now.Add(s.ttl)
}
