package feed

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"solver/internal/venue"
)

// Stream - websocket-подписка на события ордеров венью
//
// Дополняет поллинг: новые ордера приходят раньше ближайшего тика.
// Дедупликация между стримом и поллингом лежит на аренде в обработчике,
// поэтому двойная доставка безопасна. При обрыве соединения стрим
// переподключается с фиксированной задержкой.
type Stream struct {
	url            string
	reconnectDelay time.Duration
	handler        Handler
	logger         *zap.Logger
}

// NewStream создаёт стрим событий ордеров
func NewStream(url string, reconnectDelay time.Duration, handler Handler, logger *zap.Logger) *Stream {
	return &Stream{
		url:            url,
		reconnectDelay: reconnectDelay,
		handler:        handler,
		logger:         logger.Named("stream"),
	}
}

// Run держит соединение до отмены контекста
func (s *Stream) Run(ctx context.Context) {
	s.logger.Info("order stream starting", zap.String("url", s.url))

	for {
		if err := s.connect(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("stream connection lost",
				zap.Error(err),
				zap.Duration("reconnect_in", s.reconnectDelay),
			)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("order stream stopped")
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Stream) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.logger.Info("order stream connected")

	// Закрываем соединение при отмене контекста чтобы разблокировать ReadMessage
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		event, err := venue.DecodeOrderEvent(data, time.Now())
		if err != nil {
			s.logger.Warn("skipping malformed stream event", zap.Error(err))
			continue
		}

		if event.Type == venue.EventOrderCreated && event.Order != nil {
			if event.Order.Expired(time.Now()) {
				continue
			}
			s.handler(ctx, event.Order)
		}
	}
}
