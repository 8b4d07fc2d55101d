package service

import "github.com/prepmind/prepmind-backend/internal/model"

// fallbackBank is the bundled question set served when remote generation is
// unavailable. IDs are assigned at use, not stored here.
var fallbackBank = []model.Question{
	{
		Text:          "What is the correct syntax to declare a pointer to an integer in C?",
		Options:       []string{"int *ptr;", "int ptr*;", "*int ptr;", "pointer int ptr;"},
		CorrectAnswer: 0,
		Explanation:   "The asterisk (*) before the variable name declares it as a pointer to an integer.",
	},
	{
		Text:          "What does the 'sizeof' operator return?",
		Options:       []string{"Size in bits", "Size in bytes", "Size in kilobytes", "Number of elements"},
		CorrectAnswer: 1,
		Explanation:   "sizeof returns the size of a variable or data type in bytes.",
	},
	{
		Text:          "Which function is used to allocate memory dynamically in C?",
		Options:       []string{"alloc()", "malloc()", "new()", "memory()"},
		CorrectAnswer: 1,
		Explanation:   "malloc() is the standard library function for dynamic memory allocation in C.",
	},
	{
		Text:          "What is the output of: printf(\"%d\", 5/2);",
		Options:       []string{"2.5", "2", "3", "Error"},
		CorrectAnswer: 1,
		Explanation:   "Integer division in C truncates the decimal part, so 5/2 = 2.",
	},
	{
		Text:          "Which header file is required to use printf()?",
		Options:       []string{"<stdlib.h>", "<stdio.h>", "<string.h>", "<conio.h>"},
		CorrectAnswer: 1,
		Explanation:   "stdio.h (standard input/output) contains the declaration for printf().",
	},
	{
		Text:          "What does NULL represent in C?",
		Options:       []string{"Empty string", "Zero value", "Null pointer", "Undefined"},
		CorrectAnswer: 2,
		Explanation:   "NULL is a macro that represents a null pointer constant.",
	},
	{
		Text:          "Which of the following is NOT a valid C variable name?",
		Options:       []string{"_variable", "variable123", "123variable", "variable_name"},
		CorrectAnswer: 2,
		Explanation:   "Variable names in C cannot start with a digit.",
	},
	{
		Text:          "What is the range of 'char' data type in C?",
		Options:       []string{"0 to 255", "-128 to 127", "-32768 to 32767", "Depends on compiler"},
		CorrectAnswer: 3,
		Explanation:   "The range of char depends on whether it's signed or unsigned and the compiler implementation.",
	},
	{
		Text:          "Which loop is guaranteed to execute at least once?",
		Options:       []string{"for loop", "while loop", "do-while loop", "None"},
		CorrectAnswer: 2,
		Explanation:   "do-while loop checks the condition after executing the body, so it runs at least once.",
	},
	{
		Text:          "What is the purpose of the 'break' statement?",
		Options:       []string{"Exit program", "Exit loop", "Skip iteration", "Pause execution"},
		CorrectAnswer: 1,
		Explanation:   "break terminates the nearest enclosing loop or switch statement.",
	},
	{
		Text:          "How do you declare a constant in C?",
		Options:       []string{"constant int x;", "const int x;", "int constant x;", "final int x;"},
		CorrectAnswer: 1,
		Explanation:   "The 'const' keyword is used to declare constants in C.",
	},
	{
		Text:          "What is the correct way to comment in C?",
		Options:       []string{"# This is a comment", "/* This is a comment */", "// This is a comment", "Both B and C"},
		CorrectAnswer: 3,
		Explanation:   "C supports both /* */ for multi-line and // for single-line comments (C99 onwards).",
	},
	{
		Text:          "Which function is used to compare two strings in C?",
		Options:       []string{"compare()", "strcmp()", "strcompare()", "equals()"},
		CorrectAnswer: 1,
		Explanation:   "strcmp() from string.h compares two strings lexicographically.",
	},
	{
		Text:          "What is the default return type of main() function?",
		Options:       []string{"void", "int", "float", "char"},
		CorrectAnswer: 1,
		Explanation:   "The main() function returns an integer value to the operating system.",
	},
	{
		Text:          "Which operator is used to access a structure member using a pointer?",
		Options:       []string{".", "*", "->", "&"},
		CorrectAnswer: 2,
		Explanation:   "The arrow operator (->) is used to access structure members via a pointer.",
	},
	{
		Text:          "What does the '&' operator do in C?",
		Options:       []string{"Bitwise AND", "Logical AND", "Address of", "Both A and C"},
		CorrectAnswer: 3,
		Explanation:   "& can be used for both bitwise AND operation and getting the address of a variable.",
	},
	{
		Text:          "Which function is used to free dynamically allocated memory?",
		Options:       []string{"delete()", "free()", "remove()", "dealloc()"},
		CorrectAnswer: 1,
		Explanation:   "free() is used to release memory allocated by malloc/calloc/realloc.",
	},
	{
		Text:          "What is the output of: printf(\"%d\", ++x) if x=5?",
		Options:       []string{"5", "6", "7", "Error"},
		CorrectAnswer: 1,
		Explanation:   "++x is pre-increment, so x becomes 6 before being printed.",
	},
	{
		Text:          "Which storage class has the longest lifetime?",
		Options:       []string{"auto", "static", "register", "extern"},
		CorrectAnswer: 1,
		Explanation:   "static variables persist for the entire program execution.",
	},
	{
		Text:          "What is a dangling pointer?",
		Options:       []string{"NULL pointer", "Pointer to freed memory", "Uninitialized pointer", "Invalid pointer"},
		CorrectAnswer: 1,
		Explanation:   "A dangling pointer points to memory that has been freed or deallocated.",
	},
}

// fallbackQuestions returns count questions from the bundled bank, cycling
// through it when count exceeds the bank size. IDs are assigned by the caller.
func fallbackQuestions(count int) []model.Question {
	if count <= 0 {
		return nil
	}
	out := make([]model.Question, count)
	for i := 0; i < count; i++ {
		out[i] = fallbackBank[i%len(fallbackBank)]
	}
	return out
}
