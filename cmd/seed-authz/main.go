package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AnthonyGillesRudolfo/Siniestros-Gateway/internal/authz"
)

// Grants operator on the gateway to every principal in SEED_OPERATORS
// (comma separated, default user:alice) and verifies the checks.
func main() {
	_ = godotenv.Load()

	api := getenv("OPENFGA_API_URL", "http://localhost:8081")
	store := os.Getenv("OPENFGA_STORE_ID")
	if store == "" {
		log.Fatal("OPENFGA_STORE_ID not set. Create a store and export its ID.")
	}
	client := authz.NewOpenFGAClient(api, store)

	var tuples []authz.TupleKey
	for _, user := range strings.Split(getenv("SEED_OPERATORS", "user:alice"), ",") {
		if user = strings.TrimSpace(user); user != "" {
			tuples = append(tuples, authz.TupleKey{User: user, Relation: authz.RelationOperator, Object: authz.GatewayObject})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Write(ctx, tuples); err != nil {
		log.Fatalf("write tuples: %v", err)
	}
	log.Printf("seeded %d tuples", len(tuples))

	for _, tk := range tuples {
		allowed, err := client.Check(ctx, tk.User, tk.Object, tk.Relation)
		if err != nil {
			log.Fatalf("check %s: %v", tk.User, err)
		}
		log.Printf("Check %s %s -> %v", tk.User, tk.Relation, allowed)
		if !allowed {
			os.Exit(1)
		}
	}

	denied, err := client.Check(ctx, "user:anonymous", authz.GatewayObject, authz.RelationOperator)
	if err != nil {
		log.Fatalf("check anonymous: %v", err)
	}
	log.Printf("Check user:anonymous %s -> %v", authz.RelationOperator, denied)
	if denied {
		os.Exit(1)
	}

	log.Println("Authz seed verification passed")
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
