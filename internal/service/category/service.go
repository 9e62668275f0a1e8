package category

import (
	"context"
	"sort"

	"github.com/b3nzuk3/gameCity-sub000/internal/catalog"
	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/repository/category"
)

type Service struct {
	repo    category.Repository
	mapping *catalog.Mapping
}

func New(repo category.Repository, mapping *catalog.Mapping) *Service {
	if mapping == nil {
		mapping = catalog.Default()
	}
	return &Service{repo: repo, mapping: mapping}
}

// List returns every canonical category plus any other category that has
// products, each with its product count.
func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int, len(counts))
	for _, c := range counts {
		byName[c.Name] += c.Count
	}
	for _, name := range s.mapping.Names() {
		if _, ok := byName[name]; !ok {
			byName[name] = 0
		}
	}

	out := make([]domain.Category, 0, len(byName))
	for name, n := range byName {
		out = append(out, domain.Category{Name: name, Slug: catalog.Slug(name), Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
