package rank

import "harvest-engine/internal/domain"

type Scorer interface {
	Score(post domain.Post) (score float64, tags []string)
}
