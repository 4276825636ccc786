package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	apiclient "github.com/splax/accounts/pkg/api/client"
)

type cliConfig struct {
	APIBaseURL string `json:"api_base_url"`
	Token      string `json:"token"`
}

var buildVersion = "dev"

const requestTimeout = 15 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "register":
		err = commandRegister(args)
	case "verify":
		err = commandVerify(args)
	case "resend-otp":
		err = commandResendOTP(args)
	case "login":
		err = commandLogin(args)
	case "logout":
		err = commandLogout(args)
	case "profile":
		err = commandProfile(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "Username")
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	about := fs.String("about", "", "Short bio")
	skills := fs.String("skills", "", "Comma separated skills")
	apiBase := fs.String("api", "", "API base URL (default "+apiclient.DefaultBaseURL+")")
	fs.Parse(args)

	if strings.TrimSpace(*username) == "" || strings.TrimSpace(*name) == "" || strings.TrimSpace(*email) == "" {
		return errors.New("--username, --name and --email are required")
	}
	secret, err := readSecret(*password)
	if err != nil {
		return err
	}

	cfg, client, err := setup(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	msg, err := client.Register(ctx, apiclient.RegisterRequest{
		Username: *username,
		Name:     *name,
		Email:    *email,
		Password: secret,
		About:    *about,
		Skills:   splitList(*skills),
	})
	if err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func commandVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	otp := fs.String("otp", "", "Code from the verification email")
	apiBase := fs.String("api", "", "API base URL")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" || strings.TrimSpace(*otp) == "" {
		return errors.New("--email and --otp are required")
	}
	cfg, client, err := setup(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	token, err := client.VerifyOTP(ctx, *email, strings.TrimSpace(*otp))
	if err != nil {
		return err
	}
	cfg.Token = token
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("email verified, you are logged in")
	return nil
}

func commandResendOTP(args []string) error {
	fs := flag.NewFlagSet("resend-otp", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	apiBase := fs.String("api", "", "API base URL")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	_, client, err := setup(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	msg, err := client.ResendOTP(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := readSecret(*password)
	if err != nil {
		return err
	}

	cfg, client, err := setup(*apiBase)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	token, err := client.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	cfg.Token = token
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("login successful")
	return nil
}

func commandLogout(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	fs.Parse(args)

	cfg, client, err := setup("")
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Token) != "" {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if _, err := client.Logout(ctx, cfg.Token); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
	cfg.Token = ""
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("Logged out successfully")
	return nil
}

func commandProfile(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: accounts profile [show|update]")
	}
	sub := args[0]
	switch sub {
	case "show":
		return profileShow(args[1:])
	case "update":
		return profileUpdate(args[1:])
	default:
		return fmt.Errorf("unknown profile command: %s", sub)
	}
}

func profileShow(args []string) error {
	fs := flag.NewFlagSet("profile show", flag.ExitOnError)
	fs.Parse(args)

	cfg, client, err := setup("")
	if err != nil {
		return err
	}
	token, err := requireToken(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	profile, err := client.GetProfile(ctx, token)
	if err != nil {
		return err
	}
	printProfile(profile)
	return nil
}

func profileUpdate(args []string) error {
	fs := flag.NewFlagSet("profile update", flag.ExitOnError)
	name := fs.String("name", "", "New display name")
	email := fs.String("email", "", "New email address")
	about := fs.String("about", "", "New bio (empty string clears it)")
	skills := fs.String("skills", "", "Comma separated skills (empty string clears them)")
	fs.Parse(args)

	var update apiclient.ProfileUpdate
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			update.Name = name
		case "email":
			update.Email = email
		case "about":
			update.About = about
		case "skills":
			list := splitList(*skills)
			update.Skills = &list
		}
	})
	if update == (apiclient.ProfileUpdate{}) {
		return errors.New("nothing to update: pass at least one of --name, --email, --about, --skills")
	}

	cfg, client, err := setup("")
	if err != nil {
		return err
	}
	token, err := requireToken(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	profile, err := client.UpdateProfile(ctx, token, update)
	if err != nil {
		return err
	}
	printProfile(profile)
	return nil
}

func setup(apiBase string) (cliConfig, *apiclient.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cliConfig{}, nil, err
	}
	if strings.TrimSpace(apiBase) != "" {
		cfg.APIBaseURL = apiBase
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return cliConfig{}, nil, err
	}
	return cfg, client, nil
}

func requireToken(cfg cliConfig) (string, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return "", errors.New("please login first using 'accounts login'")
	}
	return token, nil
}

func readSecret(flagValue string) (string, error) {
	if secret := strings.TrimSpace(flagValue); secret != "" {
		return secret, nil
	}
	fmt.Print("Password: ")
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(bytes), nil
}

func splitList(value string) []string {
	items := []string{}
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func printProfile(p apiclient.Profile) {
	fmt.Printf("id:\t\t%s\n", p.ID)
	fmt.Printf("username:\t%s\n", p.Username)
	fmt.Printf("name:\t\t%s\n", p.Name)
	fmt.Printf("email:\t\t%s\n", p.Email)
	fmt.Printf("verified:\t%t\n", p.IsVerified)
	fmt.Printf("about:\t\t%s\n", p.About)
	fmt.Printf("skills:\t\t%s\n", strings.Join(p.Skills, ", "))
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: apiclient.DefaultBaseURL}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = apiclient.DefaultBaseURL
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "accounts", "config.json"), nil
}

func printUsage() {
	fmt.Printf("accounts CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	accounts register --username ana --name Ana --email a@x.com [--password secret] [--about text] [--skills go,sql] [--api http://localhost:5000]
	accounts verify --email a@x.com --otp 123456
	accounts resend-otp --email a@x.com
	accounts login --email a@x.com [--password secret]
	accounts logout
	accounts profile show
	accounts profile update [--name N] [--email E] [--about A] [--skills a,b]
	accounts version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
