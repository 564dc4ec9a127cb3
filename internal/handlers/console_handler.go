package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/SscSPs/atm_ledger/internal/apperrors"
	"github.com/SscSPs/atm_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/atm_ledger/internal/core/ports/services"
	"github.com/SscSPs/atm_ledger/internal/dto"
	"github.com/SscSPs/atm_ledger/internal/platform/logging"
	"github.com/SscSPs/atm_ledger/internal/utils"
	"github.com/shopspring/decimal"
)

// ConsoleHandler drives the ATM menus over a line-oriented reader and writer.
type ConsoleHandler struct {
	atm portssvc.ATMSvc
	in  *bufio.Scanner
	out io.Writer
	loc *time.Location
}

// ConsoleOption is a functional option for configuring the console handler
type ConsoleOption func(*ConsoleHandler)

// WithLocation sets the time zone used to print history timestamps.
func WithLocation(loc *time.Location) ConsoleOption {
	return func(h *ConsoleHandler) {
		h.loc = loc
	}
}

// NewConsoleHandler creates a console handler reading from in and writing to out.
func NewConsoleHandler(services *portssvc.ServiceContainer, in io.Reader, out io.Writer, opts ...ConsoleOption) *ConsoleHandler {
	h := &ConsoleHandler{
		atm: services.ATM,
		in:  bufio.NewScanner(in),
		out: out,
		loc: time.Local,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run shows the main menu until the user exits or input ends.
func (h *ConsoleHandler) Run(ctx context.Context) error {
	for {
		h.println("\nWelcome to the ATM System")
		h.println("1. Login")
		h.println("2. Create New Account")
		h.println("3. Exit")
		choice, ok := h.prompt("Enter your choice: ")
		if !ok {
			return h.in.Err()
		}

		switch choice {
		case "1":
			if !h.login(ctx) {
				return h.in.Err()
			}
		case "2":
			if !h.createAccount(ctx) {
				return h.in.Err()
			}
		case "3":
			h.println("Goodbye!")
			return nil
		default:
			h.println("Invalid choice. Try again.")
		}
	}
}

// createAccount returns false when input ended.
func (h *ConsoleHandler) createAccount(ctx context.Context) bool {
	h.println("\nCreate New Account")
	name, ok := h.prompt("Enter your name: ")
	if !ok {
		return false
	}

	var pin string
	for {
		if pin, ok = h.prompt("Create a 4-digit PIN: "); !ok {
			return false
		}
		if domain.ValidatePIN(pin) == nil {
			break
		}
		h.println("PIN must be 4 digits. Please try again.")
	}

	var deposit decimal.Decimal
	for {
		raw, ok := h.prompt("Enter initial deposit amount: $")
		if !ok {
			return false
		}
		amount, err := parseAmount(raw)
		if err != nil {
			h.println("Invalid amount. Try again.")
			continue
		}
		if !amount.IsPositive() {
			h.println("Amount must be positive.")
			continue
		}
		deposit = amount
		break
	}

	acc, err := h.atm.CreateAccount(ctx, dto.CreateAccountRequest{Name: name, PIN: pin, InitialDeposit: deposit})
	if err != nil {
		h.println(userMessage(err, "Account not found."))
		return true
	}

	resp := dto.ToAccountResponse(acc)
	h.printf("\nAccount created successfully!\nYour account number is: %s\n", resp.AccountNumber)
	h.printf("Opening balance: %s\n", resp.Balance)
	return true
}

// login returns false when input ended.
func (h *ConsoleHandler) login(ctx context.Context) bool {
	h.println("\nATM Login")
	number, ok := h.prompt("Enter account number: ")
	if !ok {
		return false
	}
	pin, ok := h.prompt("Enter PIN: ")
	if !ok {
		return false
	}

	if err := dto.Validate(dto.LoginRequest{AccountNumber: number, PIN: pin}); err != nil {
		h.println("Invalid credentials.")
		return true
	}

	session, err := h.atm.Login(ctx, number, pin)
	if err != nil {
		h.println(userMessage(err, "Invalid credentials."))
		return true
	}

	h.printf("\nWelcome, %s!\n", session.Name())
	logger := logging.GetLoggerFromCtx(ctx).With(slog.String("session_id", session.SessionID()))
	return h.sessionMenu(logging.WithLogger(ctx, logger), session)
}

// sessionMenu returns false when input ended.
func (h *ConsoleHandler) sessionMenu(ctx context.Context, session portssvc.AccountSessionSvc) bool {
	for {
		h.println("\nATM Menu:")
		h.println("1. Check Balance")
		h.println("2. Withdraw Money")
		h.println("3. Deposit Money")
		h.println("4. Transfer Money")
		h.println("5. Transaction History")
		h.println("6. Change PIN")
		h.println("7. Logout")
		choice, ok := h.prompt("Enter your choice: ")
		if !ok {
			return false
		}

		switch choice {
		case "1":
			h.printf("\nBalance: %s\n", utils.FormatMoney(session.CheckBalance()))
		case "2":
			ok = h.withdraw(ctx, session)
		case "3":
			ok = h.deposit(ctx, session)
		case "4":
			ok = h.transfer(ctx, session)
		case "5":
			h.history(ctx, session)
		case "6":
			ok = h.changePIN(ctx, session)
		case "7":
			h.println("Logging out...")
			return true
		default:
			h.println("Invalid choice.")
		}
		if !ok {
			return false
		}
	}
}

func (h *ConsoleHandler) withdraw(ctx context.Context, session portssvc.AccountSessionSvc) bool {
	amount, ok, valid := h.promptAmount("\nEnter amount to withdraw: $")
	if !ok || !valid {
		return ok
	}
	if err := session.Withdraw(ctx, amount); err != nil {
		h.println(userMessage(err, "Account not found."))
		return true
	}
	h.println("Withdrawal successful.")
	return true
}

func (h *ConsoleHandler) deposit(ctx context.Context, session portssvc.AccountSessionSvc) bool {
	amount, ok, valid := h.promptAmount("\nEnter amount to deposit: $")
	if !ok || !valid {
		return ok
	}
	if err := session.Deposit(ctx, amount); err != nil {
		h.println(userMessage(err, "Account not found."))
		return true
	}
	h.println("Deposit successful.")
	return true
}

func (h *ConsoleHandler) transfer(ctx context.Context, session portssvc.AccountSessionSvc) bool {
	recipient, ok := h.prompt("\nEnter recipient's account number: ")
	if !ok {
		return false
	}
	if recipient == session.AccountNumber() {
		h.println("Cannot transfer to your own account.")
		return true
	}

	amount, ok, valid := h.promptAmount("Enter amount to transfer: $")
	if !ok || !valid {
		return ok
	}
	if err := session.Transfer(ctx, recipient, amount); err != nil {
		h.println(userMessage(err, "Recipient account not found."))
		return true
	}
	h.println("Transfer successful.")
	return true
}

func (h *ConsoleHandler) history(ctx context.Context, session portssvc.AccountSessionSvc) {
	h.printf("\nTransaction History for %s\n", session.AccountNumber())
	records, err := session.TransactionHistory(ctx)
	if err != nil {
		h.println(userMessage(err, "Account not found."))
		return
	}
	if len(records) == 0 {
		h.println("No transactions.")
		return
	}
	for _, line := range dto.ToTransactionResponses(records, h.loc) {
		h.printf("[%s] %s\n", line.Timestamp, line.Details)
	}
}

func (h *ConsoleHandler) changePIN(ctx context.Context, session portssvc.AccountSessionSvc) bool {
	newPIN, ok := h.prompt("\nEnter new 4-digit PIN: ")
	if !ok {
		return false
	}
	if domain.ValidatePIN(newPIN) != nil {
		h.println("PIN must be 4 digits.")
		return true
	}
	confirm, ok := h.prompt("Confirm new PIN: ")
	if !ok {
		return false
	}
	if err := session.ChangePIN(ctx, newPIN, confirm); err != nil {
		h.println(userMessage(err, "Account not found."))
		return true
	}
	h.println("PIN changed successfully.")
	return true
}

// promptAmount reads an amount. ok is false when input ended; valid is false when the
// text was not a number, in which case the user has already been told.
func (h *ConsoleHandler) promptAmount(label string) (amount decimal.Decimal, ok bool, valid bool) {
	raw, ok := h.prompt(label)
	if !ok {
		return decimal.Zero, false, false
	}
	amount, err := parseAmount(raw)
	if err != nil {
		h.println("Invalid input.")
		return decimal.Zero, true, false
	}
	return amount, true, true
}

func (h *ConsoleHandler) prompt(label string) (string, bool) {
	fmt.Fprint(h.out, label)
	if !h.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(h.in.Text()), true
}

func (h *ConsoleHandler) println(s string) {
	fmt.Fprintln(h.out, s)
}

func (h *ConsoleHandler) printf(format string, args ...any) {
	fmt.Fprintf(h.out, format, args...)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
}

// userMessage turns a service error into the line shown to the customer.
// notFound is used for apperrors.ErrNotFound, whose meaning depends on the prompt.
func userMessage(err error, notFound string) string {
	switch {
	case errors.Is(err, apperrors.ErrTransferFailed):
		return "Transfer failed. Please try again."
	case errors.Is(err, apperrors.ErrStorage):
		return "The ATM is temporarily unavailable. Please try again later."
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return "Invalid credentials."
	case errors.Is(err, apperrors.ErrNotFound):
		return notFound
	case errors.Is(err, apperrors.ErrDuplicate):
		return "Could not assign an account number. Please try again."
	case errors.Is(err, apperrors.ErrValidation):
		return ruleText(err)
	default:
		return "Something went wrong. Please try again."
	}
}

// ruleText strips the sentinel prefix and formats the rule as a sentence.
func ruleText(err error) string {
	msg := strings.TrimPrefix(err.Error(), apperrors.ErrValidation.Error()+": ")
	if msg == "" {
		return "Invalid input."
	}
	r := []rune(msg)
	r[0] = unicode.ToUpper(r[0])
	return string(r) + "."
}
