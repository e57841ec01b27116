/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/h2overflow/apiserver/cmd"

func main() {
	cmd.Execute()
}
