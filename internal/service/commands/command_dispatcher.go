package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/seedbank/internal/domain/models"
	"github.com/mamadbah2/seedbank/internal/service/ledger"
	"github.com/mamadbah2/seedbank/internal/service/reporting"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not yet support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

// HelpText lists the staff commands.
const HelpText = "Commands:\n/withdraw CODE AMOUNT [reason]\n/stock CODE\n/alerts"

// Withdrawer applies ledger withdrawals.
type Withdrawer interface {
	ApplyWithdrawal(ctx context.Context, req ledger.WithdrawalRequest) (*models.WithdrawalResult, error)
}

// ReportingAdapter defines the reporting functions required by the dispatcher.
type ReportingAdapter interface {
	LotView(ctx context.Context, code string) (*models.AggregatedLotView, []models.Diagnostic, error)
	Inventory(ctx context.Context) (models.InventoryReport, error)
}

// Dispatcher executes parsed commands.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	ledger    Withdrawer
	reporting ReportingAdapter
	logger    *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(withdrawer Withdrawer, reporting ReportingAdapter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:    withdrawer,
		reporting: reporting,
		logger:    logger,
	}
}

// HandleCommand runs the command and returns the reply text.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Any("args", cmd.Args))

	switch cmd.Type {
	case models.CommandWithdraw:
		req, err := buildWithdrawal(cmd, sender)
		if err != nil {
			return "", err
		}
		res, err := s.ledger.ApplyWithdrawal(ctx, req)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Withdrew %s from %s. Volume %s to %s.", res.Amount, res.LotCode, res.PreviousVolume, res.NewVolume), nil
	case models.CommandStock:
		if len(cmd.Args) == 0 {
			return "", ErrInvalidArguments
		}
		code := strings.Join(cmd.Args, " ")
		view, _, err := s.reporting.LotView(ctx, code)
		if err != nil {
			return "", err
		}
		if view == nil {
			return "", fmt.Errorf("%s: %w", code, ledger.ErrLotNotFound)
		}
		return reporting.StockSummary(*view), nil
	case models.CommandAlerts:
		report, err := s.reporting.Inventory(ctx)
		if err != nil {
			return "", err
		}
		return reporting.AlertSummary(report), nil
	case models.CommandHelp:
		return HelpText, nil
	default:
		return "", ErrUnsupportedCommand
	}
}

// buildWithdrawal reads "CODE AMOUNT [reason]". Lot codes may contain spaces,
// so the code runs up to the first token that parses as a number.
func buildWithdrawal(cmd models.Command, sender string) (ledger.WithdrawalRequest, error) {
	for i := 1; i < len(cmd.Args); i++ {
		amount, err := strconv.ParseFloat(strings.ReplaceAll(cmd.Args[i], ",", ""), 64)
		if err != nil {
			continue
		}
		return ledger.WithdrawalRequest{
			LotCode: strings.Join(cmd.Args[:i], " "),
			Amount:  amount,
			Reason:  strings.Join(cmd.Args[i+1:], " "),
			User:    "whatsapp:" + sender,
		}, nil
	}
	return ledger.WithdrawalRequest{}, ErrInvalidArguments
}

// ReplyForError turns a command failure into a message for the sender.
func ReplyForError(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArguments):
		return "Could not read that command.\n" + HelpText
	case errors.Is(err, ErrUnsupportedCommand):
		return "Unknown command.\n" + HelpText
	case errors.Is(err, ledger.ErrLotNotFound):
		return "No lot with that code."
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "Amount must be a positive number."
	case errors.Is(err, ledger.ErrInsufficientVolume):
		return "Not enough volume left in that lot. " + err.Error()
	case errors.Is(err, ledger.ErrLockTimeout):
		return "The inventory is busy, please try again."
	default:
		return "Something went wrong, the request was not recorded."
	}
}
