// Creates the chat keyspace and message tables. Run once against a
// fresh cluster; production schema changes belong to a migration tool.
package main

import (
	"flag"
	"log"
	"strings"

	"github.com/gocql/gocql"
)

func main() {
	hosts := flag.String("hosts", "localhost:9042", "comma-separated ScyllaDB hosts")
	keyspace := flag.String("keyspace", "chat", "keyspace to create")
	flag.Parse()

	cluster := gocql.NewCluster(strings.Split(*hosts, ",")...)
	cluster.Consistency = gocql.Quorum
	session, err := cluster.CreateSession()
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	err = session.Query(`CREATE KEYSPACE IF NOT EXISTS ` + *keyspace + ` WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
	if err != nil {
		log.Fatal(err)
	}

	// Conversation view: one partition per participant pair, clustered
	// ascending so a scan reads oldest first.
	err = session.Query(`CREATE TABLE IF NOT EXISTS ` + *keyspace + `.dm_messages (
		convo text,
		id bigint,
		sender text,
		receiver text,
		content text,
		created_at timestamp,
		is_read boolean,
		read_at timestamp,
		PRIMARY KEY (convo, id)
	) WITH CLUSTERING ORDER BY (id ASC)`).Exec()
	if err != nil {
		log.Fatal(err)
	}

	// Inbox view: one partition per recipient, clustered descending so
	// a scan reads newest first.
	err = session.Query(`CREATE TABLE IF NOT EXISTS ` + *keyspace + `.inbox_messages (
		recipient text,
		id bigint,
		sender text,
		content text,
		created_at timestamp,
		is_read boolean,
		read_at timestamp,
		PRIMARY KEY (recipient, id)
	) WITH CLUSTERING ORDER BY (id DESC)`).Exec()
	if err != nil {
		log.Fatal(err)
	}

	log.Println("chat tables created")
}
