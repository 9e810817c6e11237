package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"easysql-backend/cmd"
	"easysql-backend/internal/config"
	"easysql-backend/internal/datasource"

	"github.com/jaswdr/faker/v2"
	"github.com/schollz/progressbar/v3"
)

const customerCount = 100

var (
	cities     = []string{"Seoul", "Busan", "Incheon", "Daegu", "Daejeon", "Gwangju", "Ulsan"}
	countries  = []string{"South Korea", "USA", "Japan", "China", "Canada"}
	categories = []string{"Electronics", "Clothing", "Books", "Home & Garden", "Sports", "Toys"}

	productNames = map[string][]string{
		"Electronics":   {"Laptop", "Smartphone", "Tablet", "Headphones", "Camera", "Smart Watch"},
		"Clothing":      {"T-Shirt", "Jeans", "Jacket", "Sneakers", "Dress", "Sweater"},
		"Books":         {"Fiction Novel", "Programming Book", "Cookbook", "Biography", "Science Book", "History Book"},
		"Home & Garden": {"Table Lamp", "Garden Tools", "Bed Sheets", "Cooking Set", "Plant Pot", "Wall Clock"},
		"Sports":        {"Basketball", "Tennis Racket", "Yoga Mat", "Dumbbells", "Running Shoes", "Bicycle"},
		"Toys":          {"Action Figure", "Board Game", "Puzzle", "Doll", "Building Blocks", "RC Car"},
	}

	statuses = []string{"Completed", "Processing", "Shipped", "Cancelled"}
)

// ddl is kept to portable forms so the same statements run on sqlite,
// postgres, and mysql. Drops go child-first so the foreign keys never block.
var ddl = []string{
	`DROP TABLE IF EXISTS order_items`,
	`DROP TABLE IF EXISTS orders`,
	`DROP TABLE IF EXISTS products`,
	`DROP TABLE IF EXISTS customers`,
	`CREATE TABLE customers (
		customer_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		city TEXT,
		country TEXT,
		signup_date DATE
	)`,
	`CREATE TABLE products (
		product_id INTEGER PRIMARY KEY,
		product_name TEXT NOT NULL,
		category TEXT,
		price REAL NOT NULL,
		stock_quantity INTEGER
	)`,
	`CREATE TABLE orders (
		order_id INTEGER PRIMARY KEY,
		customer_id INTEGER,
		order_date DATE,
		total_amount REAL,
		status TEXT,
		FOREIGN KEY (customer_id) REFERENCES customers(customer_id)
	)`,
	`CREATE TABLE order_items (
		order_item_id INTEGER PRIMARY KEY,
		order_id INTEGER,
		product_id INTEGER,
		quantity INTEGER,
		price REAL,
		FOREIGN KEY (order_id) REFERENCES orders(order_id),
		FOREIGN KEY (product_id) REFERENCES products(product_id)
	)`,
}

type product struct {
	id    int
	price float64
}

type orderItem struct {
	id        int
	productId int
	quantity  int
	price     float64
}

type seeder struct {
	db     *sql.DB
	engine string
	rng    *rand.Rand
	fake   faker.Faker
}

func main() {
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed, set for reproducible data")
	cmd.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	// The default sqlite target sits under a data directory that may not
	// exist yet on a fresh checkout.
	if cfg.DatasourceURL == "" && cfg.DatabaseType == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
			log.Fatalf("error creating database directory: %v", err)
		}
	}

	targetURL, err := cfg.TargetURL()
	if err != nil {
		log.Fatalf("error resolving datasource: %v", err)
	}

	db, engine, err := datasource.Connect(targetURL)
	if err != nil {
		log.Fatalf("error connecting to datasource: %v", err)
	}
	defer db.Close()

	rng := rand.New(rand.NewSource(*seed))
	s := &seeder{db: db, engine: engine, rng: rng, fake: faker.NewWithSeed(rng)}
	if err := s.run(); err != nil {
		log.Fatalf("error seeding database: %v", err)
	}
}

func (s *seeder) run() error {
	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("error creating tables: %w", err)
		}
	}

	if err := s.insertCustomers(); err != nil {
		return fmt.Errorf("error inserting customers: %w", err)
	}

	products, err := s.insertProducts()
	if err != nil {
		return fmt.Errorf("error inserting products: %w", err)
	}

	if err := s.insertOrders(products); err != nil {
		return fmt.Errorf("error inserting orders: %w", err)
	}

	if err := s.printCounts(); err != nil {
		return fmt.Errorf("error counting rows: %w", err)
	}

	fmt.Printf("\nSample data written to the %s datasource\n", s.engine)
	return nil
}

func (s *seeder) insertCustomers() error {
	bar := progressbar.NewOptions(customerCount,
		progressbar.OptionSetDescription("⏳ customers"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.rebind(`INSERT INTO customers (customer_id, name, email, city, country, signup_date) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 1; i <= customerCount; i++ {
		signup := time.Now().AddDate(0, 0, -(s.rng.Intn(365) + 1)).Format("2006-01-02")
		_, err := stmt.Exec(i, s.fake.Person().Name(), s.fake.Internet().Email(), s.choice(cities), s.choice(countries), signup)
		if err != nil {
			return err
		}
		_ = bar.Add(1)
	}

	return tx.Commit()
}

func (s *seeder) insertProducts() ([]product, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(s.rebind(`INSERT INTO products (product_id, product_name, category, price, stock_quantity) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var products []product
	id := 1
	for _, category := range categories {
		for _, name := range productNames[category] {
			price := round2(10 + s.rng.Float64()*490)
			if _, err := stmt.Exec(id, name, category, price, s.rng.Intn(101)); err != nil {
				return nil, err
			}
			products = append(products, product{id: id, price: price})
			id++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *seeder) insertOrders(products []product) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	orderStmt, err := tx.Prepare(s.rebind(`INSERT INTO orders (order_id, customer_id, order_date, total_amount, status) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer orderStmt.Close()

	itemStmt, err := tx.Prepare(s.rebind(`INSERT INTO order_items (order_item_id, order_id, product_id, quantity, price) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer itemStmt.Close()

	orderId, itemId := 1, 1
	for customerId := 1; customerId <= customerCount; customerId++ {
		for range s.rng.Intn(6) {
			orderDate := time.Now().AddDate(0, 0, -(s.rng.Intn(180) + 1)).Format("2006-01-02")

			// Items are drawn first so the order row carries the real total.
			items := make([]orderItem, s.rng.Intn(5)+1)
			var total float64
			for i := range items {
				p := products[s.rng.Intn(len(products))]
				quantity := s.rng.Intn(3) + 1
				total += p.price * float64(quantity)
				items[i] = orderItem{id: itemId, productId: p.id, quantity: quantity, price: p.price}
				itemId++
			}

			if _, err := orderStmt.Exec(orderId, customerId, orderDate, round2(total), s.choice(statuses)); err != nil {
				return err
			}
			for _, item := range items {
				if _, err := itemStmt.Exec(item.id, orderId, item.productId, item.quantity, item.price); err != nil {
					return err
				}
			}
			orderId++
		}
	}

	return tx.Commit()
}

func (s *seeder) printCounts() error {
	for _, table := range []string{"customers", "products", "orders", "order_items"} {
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return err
		}
		fmt.Printf("Created %d %s\n", count, strings.ReplaceAll(table, "_", " "))
	}
	return nil
}

func (s *seeder) choice(values []string) string {
	return values[s.rng.Intn(len(values))]
}

// rebind rewrites ? placeholders into the $N form postgres expects. The
// sqlite and mysql drivers take ? as written.
func (s *seeder) rebind(query string) string {
	if s.engine != datasource.EnginePostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
