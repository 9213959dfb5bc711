package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/RWilker87/lightning-client/internal/gateway"
	"github.com/RWilker87/lightning-client/internal/report"
	"github.com/RWilker87/lightning-client/internal/risk"
	"github.com/RWilker87/lightning-client/internal/session"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and persist the session credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		a.navigator.markAtEntry()

		email := strings.TrimSpace(loginEmail)
		if email == "" {
			fmt.Print("Email: ")
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read email: %w", err)
			}
			email = strings.TrimSpace(line)
		}

		secret, err := readSecret()
		if err != nil {
			return err
		}

		if err := a.store.Acquire(cmd.Context(), email, secret); err != nil {
			if errors.Is(err, session.ErrInvalidCredentials) {
				return fmt.Errorf("invalid email or password")
			}
			return fmt.Errorf("login failed: %w", err)
		}

		identity := a.store.Identity()
		fmt.Printf("Signed in as %s\n", identity.Name)
		printLicenseBanner(a.store.License())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the session and remove the persisted credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		a.store.Invalidate()
		fmt.Println("Signed out.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and license status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		a.initSession(cmd.Context())

		if !a.store.Authenticated() {
			fmt.Println("Not signed in.")
			return nil
		}

		identity := a.store.Identity()
		fmt.Printf("Signed in as %s <%s>\n", identity.Name, identity.Email)
		if identity.Admin {
			fmt.Println("Role: administrator")
		}
		printLicenseBanner(a.store.License())
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past calculations with their R1-R4 results",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a.initSession(ctx)
		if err := a.requireGuard(ctx, a.authGuard()); err != nil {
			return err
		}

		records, err := a.client.History(ctx)
		if err != nil {
			return fmt.Errorf("failed to load history: %s", friendlyError(err))
		}
		if len(records) == 0 {
			fmt.Println("No calculations yet.")
			return nil
		}

		writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "DATE\tDIMENSIONS\tNG\tR1\tR2\tR3\tR4")
		for _, record := range records {
			params := record.Parameters
			fmt.Fprintf(writer, "%s\t%g x %g x %g m\t%g\t%s\t%s\t%s\t%s\n",
				record.CreatedAt.Format("2006-01-02 15:04"),
				params.Length, params.Width, params.Height,
				params.FlashDensity,
				formatRisk(record.Result, report.CategoryLifeLoss),
				formatRisk(record.Result, report.CategoryServiceLoss),
				formatRisk(record.Result, report.CategoryCulturalLoss),
				formatRisk(record.Result, report.CategoryEconomicLoss),
			)
		}
		return writer.Flush()
	},
}

var calcInput risk.Input

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Run the local simplified risk assessment (NBR 5419 Annex L)",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := risk.Calculate(calcInput)
		if err != nil {
			return err
		}

		fmt.Printf("Collection area (Ad):      %.2f m²\n", out.CollectionArea)
		fmt.Printf("Annual threat (Nd):        %.2e\n", out.ThreatFrequency)
		fmt.Printf("Tolerable frequency (Nc):  %.2e\n", out.TolerableFrequency)
		fmt.Printf("Combined coefficient (C):  %.2f\n", out.CombinedCoefficient)
		fmt.Println()
		if out.ProtectionRequired {
			fmt.Println("Nd > Nc: protection against atmospheric discharges is recommended.")
		} else {
			fmt.Println("Nd <= Nc: protection against atmospheric discharges may be optional.")
		}
		return nil
	},
}

var (
	analyzeFile     string
	analyzeLocation string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Submit a full risk analysis (requires an active license)",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a.initSession(ctx)
		if err := a.requireGuard(ctx, a.licenseGuard()); err != nil {
			return err
		}

		data, err := os.ReadFile(analyzeFile)
		if err != nil {
			return fmt.Errorf("read payload file: %w", err)
		}
		var params report.CalculationParameters
		if err := json.Unmarshal(data, &params); err != nil {
			return fmt.Errorf("parse payload file: %w", err)
		}
		if params.TotalValue == 0 {
			params.TotalValue = params.ComputedTotal()
		}

		if location := strings.TrimSpace(analyzeLocation); location != "" {
			density, err := a.client.LightningDensity(ctx, location)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Could not resolve flash density for %q: %s\n", location, friendlyError(err))
			} else {
				params.FlashDensity = density.FlashDensity
				if density.Message != "" {
					fmt.Println(density.Message)
				}
			}
		}

		printLicenseBanner(a.store.License())

		result, err := a.client.SubmitCalculation(ctx, params)
		if err != nil {
			return fmt.Errorf("calculation failed: %s", friendlyError(err))
		}

		fmt.Println("Risk analysis:")
		for _, category := range report.Categories {
			assessment := result.Analysis[category]
			verdict := "tolerable risk"
			if assessment.ProtectionRequired {
				verdict = "PROTECTION REQUIRED"
			}
			fmt.Printf("  %s (%s): %.3e  %s\n", category, category.DisplayName(), assessment.Risk, verdict)
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email (prompted when omitted)")

	calcCmd.Flags().Float64Var(&calcInput.FlashDensity, "ng", 8.0, "ground flash density (flashes/km²/year)")
	calcCmd.Flags().Float64Var(&calcInput.Length, "length", 20, "structure length (m)")
	calcCmd.Flags().Float64Var(&calcInput.Width, "width", 15, "structure width (m)")
	calcCmd.Flags().Float64Var(&calcInput.Height, "height", 10, "structure height (m)")
	calcCmd.Flags().StringVar(&calcInput.Structure, "structure", "nao_metalico", "structure material category")
	calcCmd.Flags().StringVar(&calcInput.Roof, "roof", "nao_metalico", "roof material category")
	calcCmd.Flags().StringVar(&calcInput.Contents, "contents", "valor_padrao_nao_combustivel", "contents value category")
	calcCmd.Flags().StringVar(&calcInput.Occupancy, "occupancy", "normalmente_ocupado", "occupancy category")
	calcCmd.Flags().StringVar(&calcInput.Consequence, "consequence", "servico_nao_requerido", "strike consequence category")
	calcCmd.Flags().StringVar(&calcInput.Siting, "siting", "isolada", "relative siting category")

	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "JSON file with the calculation payload")
	analyzeCmd.Flags().StringVar(&analyzeLocation, "location", "", "resolve flash density for this location before submitting")
	_ = analyzeCmd.MarkFlagRequired("file")
}

// readSecret reads the password without echo on a terminal, or a plain line
// when input is piped.
func readSecret() (string, error) {
	fmt.Print("Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// printLicenseBanner mirrors the license status banner of the web client:
// expired, expiring soon (7 days or less), active, or never provisioned.
func printLicenseBanner(license *gateway.LicenseSnapshot) {
	if license == nil {
		fmt.Println("License: none provisioned")
		return
	}
	if license.ValidUntil == nil {
		if license.Active {
			fmt.Println("License: active")
		} else {
			fmt.Println("License: inactive")
		}
		return
	}

	days := license.DaysRemaining(time.Now())
	switch {
	case !license.Active || days < 0:
		fmt.Println("License: EXPIRED")
	case days <= 7:
		fmt.Printf("License: expires in %d day(s), renew soon\n", days)
	default:
		fmt.Printf("License: active until %s (%d days remaining)\n",
			license.ValidUntil.Format("2006-01-02"), days)
	}
}

func formatRisk(result report.RiskAnalysisResult, category report.Category) string {
	value := result.FinalRisks[category]
	if result.Analysis[category].ProtectionRequired {
		return fmt.Sprintf("%.2e!", value)
	}
	return fmt.Sprintf("%.2e", value)
}

// friendlyError extracts the backend's message when one exists.
func friendlyError(err error) string {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}
