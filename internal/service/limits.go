package service

import "github.com/ayo6706/wheelbet/internal/domain"

// Limits are the configured money bounds, in kobo.
type Limits struct {
	MinStake      int64
	MaxStake      int64
	MinDeposit    int64
	MinWithdrawal int64
}

func DefaultLimits() Limits {
	return Limits{
		MinStake:      domain.DefaultMinStake,
		MaxStake:      domain.DefaultMaxStake,
		MinDeposit:    domain.DefaultMinDeposit,
		MinWithdrawal: domain.DefaultMinWithdrawal,
	}
}
