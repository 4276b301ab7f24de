package config

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/efficienttutor/tuition_ledger_app/internal/core/allocation"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL       string
	Port              string
	IsProduction      bool
	EnableDBCheck     bool
	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	// AllocationRules are the exception rules applied on top of the default
	// equal split, loaded from the ALLOCATION_RULES JSON env variable.
	AllocationRules []allocation.Rule
}

// allocationRuleSpec is the JSON shape of one configured exception rule.
type allocationRuleSpec struct {
	Name       string          `json:"name"`
	StudentIDs []string        `json:"studentIDs"`
	EachAmount decimal.Decimal `json:"eachAmount"`
}

// parseAllocationRules decodes the ALLOCATION_RULES JSON array. Rule order
// in the array is application order, so it must stay stable across restarts.
func parseAllocationRules(raw string) ([]allocation.Rule, error) {
	if raw == "" {
		return nil, nil
	}
	var specs []allocationRuleSpec
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		return nil, fmt.Errorf("invalid ALLOCATION_RULES JSON: %w", err)
	}
	rules := make([]allocation.Rule, len(specs))
	for i, spec := range specs {
		if spec.Name == "" || len(spec.StudentIDs) == 0 {
			return nil, fmt.Errorf("allocation rule %d must have a name and at least one student ID", i)
		}
		rules[i] = allocation.Rule{
			Name:       spec.Name,
			StudentIDs: spec.StudentIDs,
			EachAmount: spec.EachAmount,
		}
	}
	return rules, nil
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "tuition-ledger-app")
	viper.SetDefault("ALLOCATION_RULES", "")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	// Load JWT Expiry Duration (e.g., "60m", "1h")
	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiryDuration, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiryDuration = time.Hour * 1 // Default to 1 hour
		if jwtExpiryStr != "" {
			log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiryDuration.String())
		}
	}
	cfg.JWTExpiryDuration = jwtExpiryDuration

	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "tuition-ledger-app"
		log.Printf("Warning: JWT_ISSUER not set. Defaulting to %s.\n", cfg.JWTIssuer)
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	rules, err := parseAllocationRules(viper.GetString("ALLOCATION_RULES"))
	if err != nil {
		return nil, err
	}
	cfg.AllocationRules = rules
	if len(rules) > 0 {
		log.Printf("Loaded %d allocation exception rule(s)\n", len(rules))
	}

	return cfg, nil
}
