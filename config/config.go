package config

import (
	"context"
	"log"
	"os"
	"time"

	"restaurant-orders-api/models"

	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// RDB is the optional menu cache. Nil when REDIS_ADDR is unset; callers must
// tolerate a nil client.
var RDB *redis.Client

// JWTSecret used to sign tokens — set by Load from env or fallback
var JWTSecret []byte

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads .env (if present) and resolves secrets before any other init
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	JWTSecret = []byte(getEnv("JWT_SECRET", "restaurant_orders_super_secret_2024"))
}

func InitDB() {
	var err error
	switch getEnv("DB_DRIVER", "sqlite") {
	case "mysql":
		dsn := os.Getenv("MYSQL_DSN")
		if dsn == "" {
			log.Fatal("DB_DRIVER=mysql requires MYSQL_DSN")
		}
		DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	default:
		DB, err = gorm.Open(sqlite.Open(getEnv("SQLITE_PATH", "restaurant_orders.db")), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	log.Println("✅ Database connected and migrated successfully")
}

// Migrate applies the schema for every model
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.UnifiedTable{},
		&models.ProductAssignment{},
		&models.OrderStatusHistory{},
	)
}

// InitRedis connects the menu cache when REDIS_ADDR is configured. The
// service runs fine without it; a failed ping just disables caching.
func InitRedis() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable (%v), menu cache disabled", err)
		return
	}
	RDB = client
	log.Println("✅ Redis connected, menu cache enabled")
}
