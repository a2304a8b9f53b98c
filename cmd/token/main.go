// Command token mints an access token for local testing and for gate
// terminals provisioned by operations.
//
//	token -user 7 -role OPERATOR -ttl 12h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-slot-reservation/internal/middleware"
)

func main() {
	user := flag.Uint64("user", 0, "user id placed in the sub claim")
	role := flag.String("role", middleware.RoleCustomer, "ADMIN, OPERATOR or CUSTOMER")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logrus.Fatal("JWT_SECRET is not set")
	}
	if *user == 0 {
		logrus.Fatal("-user is required")
	}
	switch *role {
	case middleware.RoleAdmin, middleware.RoleOperator, middleware.RoleCustomer:
	default:
		logrus.Fatalf("unknown role %q", *role)
	}

	tok, err := middleware.NewAccessToken(secret, *user, *role, *ttl)
	if err != nil {
		logrus.WithError(err).Fatal("sign token")
	}
	fmt.Println(tok.Token)
	logrus.WithField("expires", tok.Exp.Format(time.RFC3339)).Info("token issued")
}
