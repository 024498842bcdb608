package memory

import "github.com/cristianortiz/multiCurrencyAuction/internal/shared/errkind"

var (
	ErrInsufficientAllowance = errkind.New(errkind.ErrTransferFailed, "insufficient allowance")
	ErrInsufficientBalance   = errkind.New(errkind.ErrTransferFailed, "insufficient balance")
	ErrNotAssetOwner         = errkind.New(errkind.ErrTransferFailed, "account does not own the asset")
	ErrAssetNotApproved      = errkind.New(errkind.ErrTransferFailed, "asset is not approved for the engine")
	ErrAssetNotFound         = errkind.New(errkind.ErrNotFound, "asset does not exist")
	ErrAssetExists           = errkind.New(errkind.ErrStateConflict, "asset already minted")
	ErrUnknownInstrument     = errkind.New(errkind.ErrNotFound, "payment instrument is not deployed")
	ErrInstrumentExists      = errkind.New(errkind.ErrStateConflict, "payment instrument already deployed")
	ErrInvalidAmount         = errkind.New(errkind.ErrInvalidArgument, "amount must be a non-negative integer")
	ErrCustodianSource       = errkind.New(errkind.ErrTransferFailed, "custodian cannot transfer into its own custody")
)
