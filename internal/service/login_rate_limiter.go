package service

import (
	"strings"
	"sync"
	"time"
)

// LoginRateLimiter limita los intentos de login por clave de acceso.
type LoginRateLimiter interface {
	Allow(key string) bool
}

// loginRateLimiter es la ventana deslizante en memoria. Las claves vienen del
// cliente, asi que las que quedan fuera de la ventana se eliminan del mapa.
type loginRateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	attempts  map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// NewLoginRateLimiter crea un rate limiter en memoria con ventana deslizante.
func NewLoginRateLimiter(window time.Duration, max int) LoginRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &loginRateLimiter{
		window:   window,
		max:      max,
		attempts: make(map[string][]time.Time),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *loginRateLimiter) Allow(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	l.sweep(now, cutoff)

	recent := withinWindow(l.attempts[key], cutoff)
	if len(recent) >= l.max {
		l.attempts[key] = recent
		return false
	}
	l.attempts[key] = append(recent, now)
	return true
}

// sweep recorre el mapa como mucho una vez por ventana y borra claves sin intentos vigentes.
func (l *loginRateLimiter) sweep(now, cutoff time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, entries := range l.attempts {
		recent := withinWindow(entries, cutoff)
		if len(recent) == 0 {
			delete(l.attempts, key)
			continue
		}
		l.attempts[key] = recent
	}
}

// withinWindow devuelve los intentos posteriores a cutoff; entries esta ordenado.
func withinWindow(entries []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(entries) && !entries[i].After(cutoff) {
		i++
	}
	if i == len(entries) {
		return nil
	}
	return entries[i:]
}
