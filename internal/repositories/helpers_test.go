package repositories

import "github.com/go-sql-driver/mysql"

func mysqlDuplicate() error {
	return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
}
