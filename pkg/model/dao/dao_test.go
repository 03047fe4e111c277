package dao_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/slotdao/cycled/pkg/model/dao"
)

func validParameters() *dao.Parameters {
	return &dao.Parameters{
		UploadDuration:   time.Hour,
		VotingDuration:   time.Hour,
		BiddingDuration:  time.Hour,
		AuctionDuration:  time.Hour,
		VotingPeriod:     time.Hour,
		SponsorThreshold: 1,
	}
}

func TestValidateParameters(t *testing.T) {
	require.NoError(t, validParameters().Validate())

	p := validParameters()
	p.VotingDuration = 0
	require.ErrorIs(t, p.Validate(), dao.ErrInvalidParameters)

	p = validParameters()
	p.VotingDelay = -time.Second
	require.ErrorIs(t, p.Validate(), dao.ErrInvalidParameters)

	p = validParameters()
	p.SponsorThreshold = 0
	require.ErrorIs(t, p.Validate(), dao.ErrInvalidParameters)
}
