package classifier

import (
	"context"
	"errors"
)

// ErrUnavailable возвращается, когда внешний классификатор недоступен или вернул ошибку
var ErrUnavailable = errors.New("classifier unavailable")

// Result - метка серьезности и уверенность классификатора в диапазоне [0,1]
type Result struct {
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
}

// Classifier - внешняя способность: отображает текст сообщения в метку серьезности.
// Детерминизм для одинакового входа не гарантируется, побочных эффектов нет.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}
