package usecases

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/deliveryrouting/courier-backend/models"
	"github.com/deliveryrouting/courier-backend/utils"
)

const (
	companiesCacheKey        = "companies"
	DefaultCompaniesCacheTtl = time.Hour
)

type CompaniesRepository interface {
	FetchCompanies(ctx context.Context) ([]models.Company, error)
}

type CompaniesUsecase struct {
	repository CompaniesRepository
	cache      *expirable.LRU[string, []models.Company]
	fallback   []models.Company
}

func NewCompaniesUsecase(repository CompaniesRepository, ttl time.Duration, fallback []models.Company) *CompaniesUsecase {
	if ttl <= 0 {
		ttl = DefaultCompaniesCacheTtl
	}
	return &CompaniesUsecase{
		repository: repository,
		cache:      expirable.NewLRU[string, []models.Company](1, nil, ttl),
		fallback:   fallback,
	}
}

// ListCompanies serves the referential list, cached for the configured ttl. When the referential
// cannot be read, the configured fallback list is served instead and is not cached.
func (usecase *CompaniesUsecase) ListCompanies(ctx context.Context) models.CompanyList {
	if companies, ok := usecase.cache.Get(companiesCacheKey); ok {
		return models.CompanyList{Companies: companies, FromUpstream: true}
	}

	companies, err := usecase.repository.FetchCompanies(ctx)
	if err != nil || len(companies) == 0 {
		logger := utils.LoggerFromContext(ctx)
		if err != nil {
			logger.WarnContext(ctx, "could not read the courier referential, serving the fallback company list",
				slog.String("error", err.Error()))
		} else {
			logger.WarnContext(ctx, "empty courier referential, serving the fallback company list")
		}
		return models.CompanyList{Companies: usecase.fallback, FromUpstream: false}
	}

	usecase.cache.Add(companiesCacheKey, companies)
	return models.CompanyList{Companies: companies, FromUpstream: true}
}

// ParseCompanies reads "CODE:Name" entries. An entry without a name uses its code as name.
func ParseCompanies(entries []string) []models.Company {
	companies := make([]models.Company, 0, len(entries))
	for _, entry := range entries {
		code, name, _ := strings.Cut(strings.TrimSpace(entry), ":")
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = code
		}
		companies = append(companies, models.Company{Code: code, Name: name})
	}
	return companies
}
