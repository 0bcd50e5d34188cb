/*
Package scdb implements the sidechain database (SCDB): the per node record
of every withdrawal bundle (WT^) proposed by a sidechain and the work score
it has collected during its verification period.

Lifecycle of a WT^:

	first seen        WorkScore = first signal, BlocksLeft = period length
	every block       BlocksLeft - 1, WorkScore set from that block's votes
	WorkScore >= min  approved, stays approved until the SCDB is reset
	BlocksLeft == 0   expired, no more votes are counted
	period ends       everything leaves the active set, approved WT^s are
	                  archived

Nodes do not ship the whole SCDB around. A block commits to the digest of
the SCDB after it (GetSCDBHash), and peers relay small update packages that
carry only the scores that changed. TryMatch applies the packages queued
for a height to a private copy and only keeps the result when it reproduces
the committed digest.

All exported methods on SidechainDB are safe for concurrent use. Mutations
are serialized and queries never see a half applied block.
*/
package scdb
