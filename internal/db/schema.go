package db

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(32) NOT NULL DEFAULT '',
	password_hash VARCHAR(255) NOT NULL,
	role ENUM('passenger','operator','admin') NOT NULL DEFAULT 'passenger',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS routes (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	source VARCHAR(120) NOT NULL,
	destination VARCHAR(120) NOT NULL,
	distance_km DECIMAL(10,2) NOT NULL DEFAULT 0,
	KEY idx_routes_endpoints (source, destination)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS buses (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	operator_id BIGINT NOT NULL,
	bus_name VARCHAR(120) NOT NULL,
	registration_no VARCHAR(32) NOT NULL,
	total_seats INT NOT NULL,
	fare_per_km DECIMAL(10,2) NOT NULL DEFAULT 0,
	departure_time TIME NOT NULL,
	arrival_time TIME NOT NULL,
	approval_status ENUM('pending','approved','rejected') NOT NULL DEFAULT 'pending',
	is_active TINYINT(1) NOT NULL DEFAULT 1,
	UNIQUE KEY uniq_buses_registration (registration_no),
	KEY idx_buses_operator (operator_id),
	CONSTRAINT chk_buses_seats CHECK (total_seats > 0)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS schedules (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	bus_id BIGINT NOT NULL,
	route_id BIGINT NOT NULL,
	departure_date DATE NOT NULL,
	total_seats INT NOT NULL,
	available_seats INT NOT NULL,
	is_active TINYINT(1) NOT NULL DEFAULT 1,
	UNIQUE KEY uniq_schedules_bus_route_date (bus_id, route_id, departure_date),
	KEY idx_schedules_date (departure_date),
	CONSTRAINT chk_schedules_capacity CHECK (available_seats >= 0 AND available_seats <= total_seats)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS coupons (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	code VARCHAR(64) NOT NULL,
	discount_type ENUM('percentage','fixed') NOT NULL,
	discount_value DECIMAL(10,2) NOT NULL,
	max_discount DECIMAL(10,2) NOT NULL DEFAULT 0,
	min_fare DECIMAL(10,2) NOT NULL DEFAULT 0,
	usage_limit INT NULL,
	used_count INT NOT NULL DEFAULT 0,
	valid_from DATETIME NULL,
	valid_until DATETIME NULL,
	is_active TINYINT(1) NOT NULL DEFAULT 1,
	UNIQUE KEY uniq_coupons_code (code)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS bookings (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	schedule_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	booking_reference VARCHAR(32) NOT NULL,
	seat_numbers JSON NOT NULL,
	seat_count INT NOT NULL,
	passenger_name VARCHAR(255) NOT NULL,
	passenger_email VARCHAR(255) NOT NULL,
	passenger_phone VARCHAR(32) NOT NULL,
	total_fare DECIMAL(10,2) NOT NULL,
	discount_amount DECIMAL(10,2) NOT NULL DEFAULT 0,
	coupon_id BIGINT NULL,
	status ENUM('pending','confirmed','cancelled','completed') NOT NULL DEFAULT 'pending',
	payment_verified TINYINT(1) NOT NULL DEFAULT 0,
	qr_code_data TEXT NULL,
	created_at DATETIME NOT NULL,
	confirmed_at DATETIME NULL,
	cancelled_at DATETIME NULL,
	completed_at DATETIME NULL,
	UNIQUE KEY uniq_bookings_reference (booking_reference),
	KEY idx_bookings_status_created (status, payment_verified, created_at),
	KEY idx_bookings_schedule (schedule_id),
	KEY idx_bookings_user (user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS booking_seats (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	booking_id BIGINT NOT NULL,
	schedule_id BIGINT NOT NULL,
	seat_number INT NOT NULL,
	UNIQUE KEY uniq_booking_seats_schedule_seat (schedule_id, seat_number),
	KEY idx_booking_seats_booking (booking_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS payments (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	booking_id BIGINT NOT NULL,
	amount DECIMAL(10,2) NOT NULL,
	payment_method VARCHAR(32) NOT NULL,
	status ENUM('pending','completed','failed','refunded') NOT NULL DEFAULT 'pending',
	gateway_order_id VARCHAR(64) NULL,
	transaction_id VARCHAR(64) NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE KEY uniq_payments_booking (booking_id),
	UNIQUE KEY uniq_payments_transaction (transaction_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS operator_earnings (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	booking_id BIGINT NOT NULL,
	operator_id BIGINT NOT NULL,
	amount DECIMAL(10,2) NOT NULL,
	commission DECIMAL(10,2) NOT NULL,
	net_amount DECIMAL(10,2) NOT NULL,
	status ENUM('pending','paid','reversed') NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL,
	withdrawn_at DATETIME NULL,
	UNIQUE KEY uniq_operator_earnings_booking (booking_id),
	KEY idx_operator_earnings_operator (operator_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}

// Tables lists the tables created by EnsureSchema, in creation order.
var Tables = []string{"users", "routes", "buses", "schedules", "coupons", "bookings", "booking_seats", "payments", "operator_earnings"}

// EnsureSchema creates missing tables. Existing tables are left untouched.
func EnsureSchema(ctx context.Context, conn *sql.DB) error {
	for i, ddl := range schema {
		if _, err := conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", Tables[i], err)
		}
	}
	return nil
}

// MissingTables returns the expected tables not present in the current schema.
func MissingTables(ctx context.Context, q DBTX) []string {
	missing := []string{}
	for _, t := range Tables {
		if !HasTable(ctx, q, t) {
			missing = append(missing, t)
		}
	}
	return missing
}
