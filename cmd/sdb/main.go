package main

import (
	"flag"
	"fmt"
	"os"

	"sdb"
)

func main() {
	fn := flag.String("f", "", "filename")
	pid := flag.Int("p", 0, "process id")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if (*fn == "" && *pid == 0) || (*fn != "" && *pid != 0) {
		fmt.Fprintf(os.Stderr, "Invalid arguments\n")
		flag.Usage()
		os.Exit(1)
	}

	var (
		target *sdb.Target
		err    error
	)
	if *fn != "" {
		target, err = sdb.LaunchTarget(*fn, -1, flag.Args()...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error launching %s: %s\n", *fn, err)
			os.Exit(1)
		}
		Printf("%s started with PID:%d\n", *fn, target.Process().PID())
	} else {
		target, err = sdb.AttachTarget(*pid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error attaching pid %d: %s\n", *pid, err)
			os.Exit(1)
		}
		Printf("attached to PID:%d\n", *pid)
	}
	defer target.Close()

	sess := &session{target: target}
	sess.Interactive()
}
