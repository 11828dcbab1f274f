package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"golang.org/x/term"

	"github.com/mysqlsieve/mysqlsieve"
	"github.com/mysqlsieve/mysqlsieve/database"
	"github.com/mysqlsieve/mysqlsieve/database/mysql"
	"github.com/mysqlsieve/mysqlsieve/dump"
	"github.com/mysqlsieve/mysqlsieve/util"
)

// version and revision are set via -ldflags
var version = "dev"
var revision = "HEAD"

type cmdOptions struct {
	options *mysqlsieve.Options
	apply   string
	config  database.Config
	debug   bool
}

// Return parsed options for one sieve run
func parseOptions(args []string) cmdOptions {
	var configs []mysqlsieve.SieveConfig

	var opts struct {
		Format           string   `short:"F" long:"format" description:"Output format" choice:"stream" choice:"directory" default:"stream"`
		Directory        string   `short:"C" long:"directory" description:"Directory for per-table output files" value-name:"path" default:"."`
		InputFile        string   `short:"i" long:"input-file" description:"mysqldump file to read, '-' for stdin" value-name:"dump_file" default:"-"`
		CompressCommand  string   `short:"z" long:"compress-command" description:"Filter command to compress output (e.g. gzip)" value-name:"command"`
		Database         []string `short:"d" long:"database" description:"Only include this database (glob, repeatable)" value-name:"glob"`
		ExcludeDatabase  []string `short:"D" long:"exclude-database" description:"Exclude this database (glob, repeatable)" value-name:"glob"`
		Table            []string `short:"t" long:"table" description:"Only include this table ('table' or 'db.table' glob, repeatable)" value-name:"glob"`
		ExcludeTable     []string `short:"T" long:"exclude-table" description:"Exclude this table (glob, repeatable)" value-name:"glob"`
		DeferIndexes     bool     `long:"defer-indexes" description:"Rewrite CREATE TABLE to add secondary indexes after the data load"`
		DeferConstraints bool     `long:"defer-foreign-keys" description:"Defer foreign key constraints along with indexes"`
		ExcludeTableData bool     `long:"exclude-table-data" description:"Skip table data sections, keeping only DDL"`
		Apply            string   `long:"apply" description:"Execute the sieved dump against this MySQL database instead of writing it" value-name:"db_name"`
		User             string   `short:"u" long:"user" description:"MySQL user name for --apply" value-name:"user_name" default:"root"`
		Password         string   `short:"p" long:"password" description:"MySQL user password, overridden by $MYSQL_PWD" value-name:"password"`
		Host             string   `short:"h" long:"host" description:"Host to connect to the MySQL server" value-name:"host_name" default:"127.0.0.1"`
		Port             uint     `short:"P" long:"port" description:"Port used for the connection" value-name:"port_num" default:"3306"`
		Socket           string   `short:"S" long:"socket" description:"The socket file to use for connection" value-name:"socket"`
		SslMode          string   `long:"ssl-mode" description:"SSL connection mode(PREFERRED,REQUIRED,DISABLED,CUSTOM)" value-name:"ssl_mode" default:"PREFERRED"`
		SslCa            string   `long:"ssl-ca" description:"File that contains list of trusted SSL Certificate Authorities" value-name:"ssl_ca"`
		Prompt           bool     `long:"password-prompt" description:"Force MySQL user password prompt"`
		Debug            bool     `long:"debug" description:"Dump the parsed options before running"`
		Help             bool     `long:"help" description:"Show this help"`
		Version          bool     `long:"version" description:"Show this version"`

		// Custom handlers for config flags to preserve order
		Config       func(string) `long:"config" description:"YAML file to specify: target_databases, target_tables, defer_indexes, ... (can be specified multiple times)"`
		ConfigInline func(string) `long:"config-inline" description:"YAML object to specify the same keys as --config (can be specified multiple times)"`
	}

	opts.Config = func(path string) {
		configs = append(configs, mysqlsieve.ParseSieveConfig(path))
	}
	opts.ConfigInline = func(yaml string) {
		configs = append(configs, mysqlsieve.ParseSieveConfigString(yaml))
	}

	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[OPTIONS] < dump.sql"
	args, err := parser.ParseArgs(args)
	if err != nil {
		log.Fatal(err)
	}

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	if opts.Version {
		fmt.Printf("%s (%s)\n", version, revision)
		os.Exit(0)
	}

	if len(args) > 0 {
		fmt.Printf("Unexpected arguments: %v\n\n", args)
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}

	config := mysqlsieve.MergeSieveConfigs(append(configs, mysqlsieve.SieveConfig{
		TargetDatabases:  opts.Database,
		ExcludeDatabases: opts.ExcludeDatabase,
		TargetTables:     opts.Table,
		ExcludeTables:    opts.ExcludeTable,
		DeferIndexes:     opts.DeferIndexes,
		DeferConstraints: opts.DeferConstraints,
		ExcludeTableData: opts.ExcludeTableData,
	}))

	if config.DeferConstraints && !config.DeferIndexes {
		fmt.Print("--defer-foreign-keys requires --defer-indexes\n\n")
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}

	sslMode := map[string]string{
		"DISABLED":  "false",
		"PREFERRED": "preferred",
		"REQUIRED":  "true",
		"CUSTOM":    "custom",
	}[opts.SslMode]
	if sslMode == "" {
		fmt.Printf("Wrong value for ssl-mode is given: %v\n\n", opts.SslMode)
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}

	password, ok := os.LookupEnv("MYSQL_PWD")
	if !ok {
		password = opts.Password
	}

	if opts.Prompt {
		fmt.Printf("Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal(err)
		}
		password = string(pass)
	}

	return cmdOptions{
		options: &mysqlsieve.Options{
			InputFile:       opts.InputFile,
			Format:          opts.Format,
			Directory:       opts.Directory,
			CompressCommand: opts.CompressCommand,
			Config:          config,
		},
		apply: opts.Apply,
		config: database.Config{
			DbName:   opts.Apply,
			User:     opts.User,
			Password: password,
			Host:     opts.Host,
			Port:     int(opts.Port),
			Socket:   opts.Socket,
			SslMode:  sslMode,
			SslCa:    opts.SslCa,
		},
		debug: opts.Debug,
	}
}

func main() {
	util.InitSlog()
	cmd := parseOptions(os.Args[1:])

	if cmd.debug {
		pp.Fprintln(os.Stderr, cmd.options)
	}

	in, err := openInput(cmd.options.InputFile)
	if err != nil {
		log.Fatal(err)
	}

	writer, err := openWriter(cmd)
	if err != nil {
		log.Fatal(err)
	}

	if err := mysqlsieve.Run(cmd.options, in, writer); err != nil {
		log.Fatal(err)
	}
}

func openInput(inputFile string) (io.Reader, error) {
	if inputFile == "-" {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return nil, fmt.Errorf("stdin is not piped")
		}
		return os.Stdin, nil
	}
	return os.Open(inputFile)
}

func openWriter(cmd cmdOptions) (dump.Writer, error) {
	if cmd.apply != "" {
		db, err := mysql.NewDatabase(cmd.config)
		if err != nil {
			return nil, err
		}
		return mysqlsieve.NewApplyWriter(db), nil
	}

	if cmd.options.Format == "directory" {
		return dump.NewDirectoryWriter(cmd.options.Directory, cmd.options.CompressCommand), nil
	}

	if cmd.options.CompressCommand != "" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return nil, fmt.Errorf("refusing to write compressed output to a terminal")
		}
		w, err := dump.CompressPipe(cmd.options.CompressCommand, os.Stdout)
		if err != nil {
			return nil, err
		}
		return dump.NewStreamWriter(w), nil
	}
	return dump.NewStreamWriter(os.Stdout), nil
}
