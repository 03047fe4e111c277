package ledger

import (
	"time"

	flag "github.com/spf13/pflag"

	"github.com/slotdao/cycled/pkg/node"
)

const (
	// the path to the genesis file applied to an empty ledger
	CfgLedgerGenesisPath = "ledger.genesisPath"

	// the duration of the uploading phase
	CfgContestUploadDuration = "contest.uploadDuration"
	// the duration of the voting phase
	CfgContestVotingDuration = "contest.votingDuration"
	// the minimum duration of the bidding phase
	CfgContestBiddingDuration = "contest.biddingDuration"

	// the duration of an auction
	CfgAuctionDuration = "auction.duration"

	// the delay between the creation of a proposal and the start of its vote
	CfgGovernanceVotingDelay = "governance.votingDelay"
	// the duration of a proposal vote
	CfgGovernanceVotingPeriod = "governance.votingPeriod"
	// the minimum for votes of a succeeding proposal
	CfgGovernanceQuorum = "governance.quorum"

	// the exact fee to create a candidate
	CfgCandidatesFee = "candidates.fee"
	// the number of sponsors promoting a candidate
	CfgCandidatesSponsorThreshold = "candidates.sponsorThreshold"
)

var params = &node.PluginParams{
	Params: map[string]*flag.FlagSet{
		"nodeConfig": func() *flag.FlagSet {
			fs := flag.NewFlagSet("", flag.ContinueOnError)
			fs.String(CfgLedgerGenesisPath, "genesis.json", "the path to the genesis file applied to an empty ledger")
			fs.Duration(CfgContestUploadDuration, 72*time.Hour, "the duration of the uploading phase")
			fs.Duration(CfgContestVotingDuration, 48*time.Hour, "the duration of the voting phase")
			fs.Duration(CfgContestBiddingDuration, 24*time.Hour, "the minimum duration of the bidding phase")
			fs.Duration(CfgAuctionDuration, 24*time.Hour, "the duration of an auction")
			fs.Duration(CfgGovernanceVotingDelay, time.Hour, "the delay between the creation of a proposal and the start of its vote")
			fs.Duration(CfgGovernanceVotingPeriod, 72*time.Hour, "the duration of a proposal vote")
			fs.Int(CfgGovernanceQuorum, 4, "the minimum for votes of a succeeding proposal")
			fs.Int(CfgCandidatesFee, 1000, "the exact fee to create a candidate")
			fs.Int(CfgCandidatesSponsorThreshold, 3, "the number of sponsors promoting a candidate")
			return fs
		}(),
	},
}
