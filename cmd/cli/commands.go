package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange the API token for a session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		apiToken, _ := cmd.Flags().GetString("token")
		if apiToken == "" {
			return fmt.Errorf("--token is required")
		}

		token, err := apiClient.Login(apiToken)
		if err != nil {
			return fmt.Errorf("login failed: %v", err)
		}

		viper.Set("token", token)
		if err := viper.WriteConfig(); err != nil {
			if err := viper.SafeWriteConfig(); err != nil {
				return fmt.Errorf("failed to save token: %v", err)
			}
		}
		fmt.Println("Login successful")
		return nil
	},
}

var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Manage companies and their report recipients",
}

var companyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		companies, err := apiClient.ListCompanies(all)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
		fmt.Fprintln(w, "ID\tNAME\tAPI URL\tACTIVE\t")
		for _, c := range companies {
			fmt.Fprintf(w, "%d\t%s\t%s\t%v\t\n", c.ID, c.Name, c.APIURL, c.IsActive)
		}
		return w.Flush()
	},
}

var companyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new company",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		apiKey, _ := cmd.Flags().GetString("api-key")
		apiURL, _ := cmd.Flags().GetString("api-url")
		description, _ := cmd.Flags().GetString("description")

		company, err := apiClient.CreateCompany(map[string]interface{}{
			"name":        name,
			"api_key":     apiKey,
			"api_url":     apiURL,
			"description": description,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Company %q created with ID %d\n", company.Name, company.ID)
		return nil
	},
}

var userAddCmd = &cobra.Command{
	Use:   "add-user [company-id]",
	Short: "Add a report recipient to a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		companyID, err := parseID(args[0], "company")
		if err != nil {
			return err
		}
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")

		if err := apiClient.AddUser(companyID, map[string]interface{}{
			"email": email,
			"name":  name,
		}); err != nil {
			return err
		}
		fmt.Printf("User %s added to company %d\n", email, companyID)
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage report schedules",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list [company-id]",
	Short: "List a company's schedules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		companyID, err := parseID(args[0], "company")
		if err != nil {
			return err
		}

		schedules, err := apiClient.ListSchedules(companyID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tCRON\tACTIVE\tRUNS\t")
		for _, s := range schedules {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%v\t%d\t\n",
				s.ID, s.Name, s.ReportType, s.CronExpression, s.IsActive, s.RunCount)
		}
		return w.Flush()
	},
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add [company-id]",
	Short: "Create a report schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		companyID, err := parseID(args[0], "company")
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		reportType, _ := cmd.Flags().GetString("type")
		cronExpr, _ := cmd.Flags().GetString("cron")
		recipients, _ := cmd.Flags().GetString("recipients")

		schedule, err := apiClient.CreateSchedule(companyID, map[string]interface{}{
			"name":            name,
			"report_type":     reportType,
			"cron_expression": cronExpr,
			"recipients":      recipients,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Schedule %q created with ID %d\n", schedule.Name, schedule.ID)
		return nil
	},
}

var scheduleRunCmd = &cobra.Command{
	Use:   "run [company-id] [schedule-id]",
	Short: "Trigger a schedule immediately",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		companyID, err := parseID(args[0], "company")
		if err != nil {
			return err
		}
		scheduleID, err := parseID(args[1], "schedule")
		if err != nil {
			return err
		}

		if err := apiClient.RunSchedule(companyID, scheduleID); err != nil {
			return err
		}
		fmt.Println("Schedule triggered")
		return nil
	},
}

var requestCmd = &cobra.Command{
	Use:   "requests",
	Short: "Inspect ticket report requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		companyID, _ := cmd.Flags().GetUint("company")
		status, _ := cmd.Flags().GetString("status")

		requests, err := apiClient.ListRequests(companyID, status)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
		fmt.Fprintln(w, "ID\tCOMPANY\tRANGE\tSTATUS\tTICKETS\tFILE\t")
		for _, r := range requests {
			fmt.Fprintf(w, "%d\t%d\t%s to %s\t%s\t%d\t%s\t\n",
				r.ID, r.CompanyID, r.DateStart, r.DateEnd, r.Status, r.TotalTickets, r.FileName)
		}
		return w.Flush()
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [company-id]",
	Short: "Request a ticket report for a date range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		companyID, err := parseID(args[0], "company")
		if err != nil {
			return err
		}
		dateStart, _ := cmd.Flags().GetString("start")
		dateEnd, _ := cmd.Flags().GetString("end")
		emailTo, _ := cmd.Flags().GetString("email")

		request, err := apiClient.FetchTickets(companyID, dateStart, dateEnd, emailTo)
		if err != nil {
			return err
		}

		fmt.Printf("Request %d accepted (status: %s)\n", request.ID, request.Status)
		return nil
	},
}

func parseID(raw, kind string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s ID: %v", kind, err)
	}
	return uint(id), nil
}

func init() {
	loginCmd.Flags().StringP("token", "t", "", "API token")

	companyAddCmd.Flags().String("name", "", "Company name")
	companyAddCmd.Flags().String("api-key", "", "Upstream ticket API key")
	companyAddCmd.Flags().String("api-url", "", "Upstream ticket API URL")
	companyAddCmd.Flags().String("description", "", "Description")
	companyAddCmd.MarkFlagRequired("name")
	companyAddCmd.MarkFlagRequired("api-key")
	companyAddCmd.MarkFlagRequired("api-url")

	userAddCmd.Flags().String("email", "", "Recipient email")
	userAddCmd.Flags().String("name", "", "Recipient name")
	userAddCmd.MarkFlagRequired("email")

	companyCmd.AddCommand(companyListCmd)
	companyCmd.AddCommand(companyAddCmd)
	companyCmd.AddCommand(userAddCmd)
	companyListCmd.Flags().Bool("all", false, "Include deactivated companies")

	scheduleAddCmd.Flags().String("name", "", "Schedule name")
	scheduleAddCmd.Flags().String("type", "monthly", "Report type (daily/weekly/monthly/custom)")
	scheduleAddCmd.Flags().String("cron", "", "Cron expression (minute hour day month weekday)")
	scheduleAddCmd.Flags().String("recipients", "", "Comma-separated recipient override")
	scheduleAddCmd.MarkFlagRequired("name")

	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)

	requestCmd.Flags().Uint("company", 0, "Filter by company ID")
	requestCmd.Flags().String("status", "", "Filter by status")

	fetchCmd.Flags().String("start", "", "Start date (YYYY-MM-DD)")
	fetchCmd.Flags().String("end", "", "End date (YYYY-MM-DD), empty means present")
	fetchCmd.Flags().String("email", "", "Comma-separated recipient override")
	fetchCmd.MarkFlagRequired("start")
}
